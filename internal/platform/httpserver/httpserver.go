package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Header and idle timeouts bound slow clients;
// there is no overall write timeout since settlement requests may hold the
// connection while a transaction commits.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
