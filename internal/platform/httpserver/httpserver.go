package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Write timeout leaves headroom for scan
// handlers, which may wait out the full classifier timeout before answering.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
