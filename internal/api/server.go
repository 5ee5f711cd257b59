// Package api exposes the compiler over HTTP: validate a komposition,
// compile it into a plan, list the operation catalog.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/kompozer/internal/catalog"
	"github.com/mattjoyce/kompozer/internal/komposition"
	"github.com/mattjoyce/kompozer/internal/plan"
	"github.com/mattjoyce/kompozer/internal/plancache"
)

// Compiler is the planning pipeline as the server sees it.
type Compiler interface {
	Compile(ctx context.Context, k *komposition.Komposition) (*plan.BuildPlan, error)
}

// Config holds API server configuration.
type Config struct {
	Listen string
}

// Server is the HTTP surface over the planner.
type Server struct {
	config    Config
	compiler  Compiler
	cat       *catalog.Catalog
	cache     plancache.Store
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates the server. cache may be nil, in which case every request
// compiles from scratch.
func New(config Config, compiler Compiler, cat *catalog.Catalog, cache plancache.Store, logger *slog.Logger) *Server {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Server{
		config:    config,
		compiler:  compiler,
		cat:       cat,
		cache:     cache,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
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

// Routes builds the chi router. Exported so tests can drive it through
// httptest without a listener.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/v1/operations", s.handleOperations)
	r.Post("/v1/validate", s.handleValidate)
	r.Post("/v1/plan", s.handlePlan)

	return r
}

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
