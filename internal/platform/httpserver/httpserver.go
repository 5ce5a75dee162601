package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults for this project. The write
// timeout leaves room for a full registry round trip plus the document body.
func New(addr string, handler http.Handler, registryTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      registryTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
