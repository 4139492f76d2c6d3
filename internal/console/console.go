// Package console serves the embedded browser dashboard. The dashboard
// is a single self-contained page that posts prompts to the analyze
// endpoint and renders the verdict.
package console

import (
	_ "embed"
	"net/http"
)

// The console is an operator tool and must not be indexed.
const (
	RobotsTagHeader = "X-Robots-Tag"
	RobotsTagValue  = "noindex, nofollow"
)

//go:embed console.html
var consoleHTML []byte

func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(RobotsTagHeader, RobotsTagValue)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(consoleHTML)
	})
}
