// Package site serves the embedded lead dashboard.
package site

import (
	"context"
	"net/http"
)

// Register mounts the dashboard at /. Paths without a matching asset get 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", NewRootHandler())
}

// RootHandler serves the dashboard assets to GET and HEAD requests.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a handler over the embedded assets.
func NewRootHandler() *RootHandler {
	return &RootHandler{files: http.FileServer(FS())}
}

// ServeHTTP implements http.Handler.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	h.files.ServeHTTP(w, r)
}
