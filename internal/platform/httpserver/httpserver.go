package httpserver

import (
	"net/http"
	"time"
)

// New builds the gateway's HTTP server. Write timeout leaves headroom for a
// full-history request that fans out to the bureau under its own 10s budget.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
