// Package server runs the HTTP listener and the middleware chain in front
// of the data handlers.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/stevemurr/simple-data-server/logger"
	"github.com/stevemurr/simple-data-server/metrics"
)

// Config holds the listener and middleware settings.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxBodyBytes caps request bodies; zero disables the cap.
	MaxBodyBytes int64

	// AllowedOrigins is the CORS origin list; empty or ["*"] allows any.
	AllowedOrigins []string

	// RateLimit is the sustained requests per second across all clients;
	// zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Server manages the HTTP server and middleware.
type Server struct {
	config  Config
	logger  *logger.Logger
	metrics *metrics.Metrics
	limiter *rate.Limiter
	server  *http.Server
}

// New creates a new HTTP server around handler.
func New(cfg Config, handler http.Handler, l *logger.Logger, m *metrics.Metrics) *Server {
	s := &Server{
		config:  cfg,
		logger:  l.WithComponent("server"),
		metrics: m,
		limiter: newLimiter(cfg.RateLimit, cfg.RateBurst),
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.withMiddleware(handler),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Infow("HTTP server starting",
		"address", s.server.Addr,
		"url", fmt.Sprintf("http://%s", s.server.Addr),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
