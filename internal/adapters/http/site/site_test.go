package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a registered dashboard", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		serve := func(method, path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(method, path, http.NoBody))
			return w
		}

		Convey("Then / serves the dashboard page", func() {
			w := serve(http.MethodGet, "/")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(w.Body.String(), ShouldContainSubstring, "Lead Scoring Dashboard")
			So(w.Body.String(), ShouldContainSubstring, "/app.js")
		})

		Convey("And the script queries the leads API", func() {
			w := serve(http.MethodGet, "/app.js")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "/api/leads?")
			So(w.Body.String(), ShouldContainSubstring, "/api/export?")
		})

		Convey("And the stylesheet is served", func() {
			w := serve(http.MethodGet, "/style.css")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/css")
		})

		Convey("And unknown assets are not found", func() {
			So(serve(http.MethodGet, "/some-asset").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And writes are rejected", func() {
			w := serve(http.MethodPost, "/")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, "GET, HEAD")
		})
	})
}

func TestSiteHandlerWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		So(func() { Register(context.Background(), nil) }, ShouldPanic)
	})
}
