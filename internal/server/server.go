// Package server runs the connector's HTTP listener.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"postpipe-connector/internal/common/logging"
)

// Server represents an HTTP server
type Server struct {
	srv      *http.Server
	listener net.Listener
	errCh    chan error
	logger   logging.Logger
}

// New creates a server for handler on port. An empty port or "0" picks a
// free one.
func New(handler http.Handler, port string, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Named("server")
	}
	return &Server{
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		errCh:  make(chan error, 1),
		logger: logger,
	}
}

// Start binds the listener and serves in the background. Bind errors are
// returned; later serve errors arrive on Errors.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info("HTTP server listening", logging.Field{Key: "addr", Value: ln.Addr().String()})

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
		close(s.errCh)
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Errors yields a fatal serve error, and is closed when serving stops.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
