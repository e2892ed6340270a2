// Package ui embeds the browser live viewer served at the API root.
package ui

import (
	_ "embed"
	"net/http"
)

//go:embed viewer.html
var viewerHTML []byte

// Handler returns an http.Handler that serves the live viewer page.
// The page talks to /api/streams and the /api/live websocket.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(viewerHTML)
	})
}
