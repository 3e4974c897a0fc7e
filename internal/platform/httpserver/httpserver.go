package httpserver

import (
	"net/http"
	"time"
)

// ShutdownTimeout bounds the graceful drain on termination. Scan requests
// are short; anything still in flight after this is abandoned.
const ShutdownTimeout = 10 * time.Second

// New builds the rally HTTP server. The write timeout leaves room for the
// admin statistics aggregation, which reads the full ledger.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
