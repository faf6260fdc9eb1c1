package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// StatusFunc returns the body of GET /status. It is called from request
// goroutines and must be safe for concurrent use.
type StatusFunc func() any

// Config configures a Server.
type Config struct {
	Addr string

	// Metrics serves /metrics when set.
	Metrics http.Handler

	// Status serves /status when set.
	Status StatusFunc

	Logger *slog.Logger
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	handler := Chain(newRouter(cfg),
		RequestID(),
		Recover(cfg.Logger),
		AccessLog(cfg.Logger),
	)
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		handler: handler,
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
