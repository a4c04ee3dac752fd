// Package server exposes the River VM over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/rivervm/internal/rvm"
	"github.com/roach88/rivervm/internal/state"
)

// Default limits used when no option overrides them.
const (
	DefaultMaxBatchSize = 100
	DefaultMaxBodyBytes = 1 << 20
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	router   *rvm.Router
	reader   state.Reader
	logger   *slog.Logger
	batchIDs BatchIDGenerator
	limiter  *RateLimiter
	checks   map[string]HealthCheck

	maxBatchSize int
	maxBodyBytes int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and batch logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithBatchIDGenerator replaces the UUIDv7 batch id generator.
func WithBatchIDGenerator(g BatchIDGenerator) Option {
	return func(s *Server) { s.batchIDs = g }
}

// WithRateLimiter enables per-client rate limiting.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) { s.limiter = rl }
}

// WithHealthCheck adds a named dependency check to /health.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// WithMaxBatchSize bounds the number of messages per batch.
func WithMaxBatchSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// New creates a Server. reader serves the lookup endpoints and is usually
// the same store the router was built with.
func New(router *rvm.Router, reader state.Reader, opts ...Option) *Server {
	s := &Server{
		router:       router,
		reader:       reader,
		logger:       slog.Default(),
		batchIDs:     UUIDv7Generator{},
		checks:       make(map[string]HealthCheck),
		maxBatchSize: DefaultMaxBatchSize,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the configured chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(Metrics)
	r.Use(MaxBodySize(s.maxBodyBytes))

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(Logger(s.logger))
	r.Use(chimw.Recoverer)

	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", s.health)

	r.Post("/messageBatch", s.postMessageBatch)

	r.Get("/messages/{id}", s.getMessage)
	r.Get("/channels/{id}", s.getChannel)
	r.Get("/channels/{id}/submissions", s.getChannelSubmissions)
	r.Get("/items/{id}", s.getItem)
	r.Get("/submissions/{id}", s.getSubmission)
	r.Get("/responses/{id}", s.getResponse)

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting river server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
