// Package httpserver builds the landledger HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	idleTimeout       = 2 * time.Minute
	// Covers encoding and flushing after the handler's own deadline fires.
	writeSlack = 30 * time.Second
)

// New returns a server whose write deadline outlasts handlerTimeout, the
// longest a registry mutation may wait for its chain receipt.
func New(addr string, handler http.Handler, handlerTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      handlerTimeout + writeSlack,
		IdleTimeout:       idleTimeout,
	}
}
