// Package swagger serves the OpenAPI document and a ReDoc viewer for it.
package swagger

import (
	"context"
	"net/http"
)

// RedocScript is the ReDoc bundle loaded by the docs page.
const RedocScript = "https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"

// Register attaches the docs routes to mux.
//
//	GET /api-docs      -> ReDoc HTML
//	GET /openapi.yaml  -> embedded OpenAPI document
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("/api-docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})

	mux.HandleFunc("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(OpenAPI)
	})
}

const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Lead Scoring API Docs</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="` + RedocScript + `"></script>
    <script>Redoc.init('/openapi.yaml', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
