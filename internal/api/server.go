package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reconly/reconcile-backend/internal/api/handlers"
	"github.com/reconly/reconcile-backend/internal/api/middleware"
	"github.com/reconly/reconcile-backend/internal/domain/recon"
	"github.com/reconly/reconcile-backend/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	engine     *recon.Engine
	cache      *recon.RunCache
}

// NewServer creates a new API server.
func NewServer(cfg Config, repo storage.Repository, engine *recon.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
		repo:   repo,
		engine: engine,
		cache:  recon.NewRunCache(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	// CORS
	s.router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
	}))

	// Request logging
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		reconHandler := handlers.NewReconciliationsHandler(s.repo, s.engine, s.cache)
		r.Post("/reconciliations", reconHandler.Create)
		r.Get("/reconciliations", reconHandler.List)
		r.Get("/reconciliations/{id}", reconHandler.Get)

		statsHandler := handlers.NewStatsHandler(s.repo, s.cache)
		r.Get("/reconciliations/{id}/stats", statsHandler.Get)

		matchesHandler := handlers.NewMatchesHandler(s.repo, s.cache)
		r.Post("/reconciliations/{id}/matches", matchesHandler.Create)
		r.Delete("/reconciliations/{id}/matches/{matchID}", matchesHandler.Delete)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
