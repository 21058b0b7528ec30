// Package httpserver builds the process-wide HTTP server. Request timeouts
// stay out of here: claim submissions carry multipart uploads of unpredictable
// size, so only the header read and idle keep-alives are bounded.
package httpserver

import (
	"net/http"
	"time"
)

// New wires a server for the given router; shutdown is driven by the caller.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
