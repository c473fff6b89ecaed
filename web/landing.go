package web

import (
	_ "embed"
	"net/http"
)

//go:embed index.html
var indexHTML []byte

// IndexHandler serves the landing page at the web root (/).
// It returns a static HTML page describing the API for humans and tools.
//
// Cache headers: 1 hour with revalidation to allow updates while maintaining performance.
// Only GET and HEAD methods are allowed; other methods return 405 Method Not Allowed.
func IndexHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(indexHTML)
	})
}
