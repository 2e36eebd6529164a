package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. ReadHeaderTimeout bounds slow-header clients;
// per-request deadlines are enforced by the router's timeout middleware, so
// no Read/Write timeouts are set here.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
