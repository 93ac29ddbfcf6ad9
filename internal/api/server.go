// Package api exposes the HTTP surface: one POST route per
// transformation kind, the result download route, and healthz.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pdfrelay/internal/operation"
	"pdfrelay/internal/orchestrator"
)

// JobRunner executes one validated operation request. The orchestrator
// implements it; tests substitute a mock.
type JobRunner interface {
	Run(ctx context.Context, doc orchestrator.UploadedDocument, req operation.Request) (orchestrator.Result, error)
}

// ArtifactReader serves the download side of the artifact store.
type ArtifactReader interface {
	Open(name string) (*os.File, int64, error)
	Count() (int, error)
}

// ExpiryStatus exposes the deletion schedule: how many deletions are
// still pending, and whether a given artifact's deadline has passed.
type ExpiryStatus interface {
	Pending(ctx context.Context) (int, error)
	Due(ctx context.Context, name string) (bool, error)
}

// Config holds API server configuration.
type Config struct {
	Listen         string
	PublicBaseURL  string
	MaxUploadBytes int64
}

// Server is the HTTP API server.
type Server struct {
	config    Config
	runner    JobRunner
	artifacts ArtifactReader
	expiry    ExpiryStatus
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time

	mu     sync.Mutex
	served map[string]int64
}

// New creates a new API server instance.
func New(config Config, runner JobRunner, artifacts ArtifactReader, expiry ExpiryStatus, logger *slog.Logger) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 20 * 1024 * 1024
	}
	return &Server{
		config:    config,
		runner:    runner,
		artifacts: artifacts,
		expiry:    expiry,
		logger:    logger,
		startedAt: time.Now(),
		served:    make(map[string]int64),
	}
}

// Start starts the HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // await-completion can be slow
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/result/{filename}", s.handleDownload)

	r.Post("/compress-pdf", s.handleOperation(operation.Compress))
	r.Post("/convert-pdf", s.handleOperation(operation.Convert))
	r.Post("/protect-pdf", s.handleOperation(operation.Protect))
	r.Post("/remove-pdf-protection", s.handleOperation(operation.RemoveProtection))
	r.Post("/split-pdf", s.handleOperation(operation.Split))
	r.Post("/reorder-pdf", s.handleOperation(operation.Reorder))
	r.Post("/ocr-pdf", s.handleOperation(operation.OCR))

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) countServed(kind operation.Kind) {
	s.mu.Lock()
	s.served[string(kind)]++
	s.mu.Unlock()
}

func (s *Server) servedSnapshot() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.served))
	for k, v := range s.served {
		out[k] = v
	}
	return out
}
