// Package api exposes the reconciliation ledger over JSON HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reconhq/recon-backend/internal/api/handlers"
	"github.com/reconhq/recon-backend/internal/api/middleware"
	"github.com/reconhq/recon-backend/internal/domain/ledger"
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
	ledger     *ledger.Service
}

// NewServer creates a new API server over the ledger service.
func NewServer(cfg Config, svc *ledger.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
		ledger: svc,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Actor", "X-Correlation-ID"},
	}
	s.router.Use(middleware.CORS(corsConfig))

	s.router.Use(middleware.CorrelationID)
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		// Transactions
		transactionsHandler := handlers.NewTransactionsHandler(s.ledger)
		r.Get("/transactions", transactionsHandler.List)
		r.Get("/transactions/{side}/{id}", transactionsHandler.Get)

		// Matches
		matchesHandler := handlers.NewMatchesHandler(s.ledger)
		r.Get("/matches", matchesHandler.List)
		r.Post("/matches", matchesHandler.Create)
		r.Delete("/matches/{id}", matchesHandler.Delete)

		// Exceptions
		exceptionsHandler := handlers.NewExceptionsHandler(s.ledger)
		r.Get("/exceptions", exceptionsHandler.List)
		r.Post("/exceptions/bulk-accept", exceptionsHandler.BulkAccept)
		r.Post("/exceptions/{id}/resolve", exceptionsHandler.Resolve)
		r.Post("/exceptions/{id}/dismiss", exceptionsHandler.Dismiss)

		// Watchlist
		watchlistHandler := handlers.NewWatchlistHandler(s.ledger)
		r.Get("/watchlist", watchlistHandler.List)
		r.Post("/watchlist", watchlistHandler.Create)
		r.Post("/watchlist/{id}/clear", watchlistHandler.Clear)

		// Dashboard stats
		statsHandler := handlers.NewStatsHandler(s.ledger)
		r.Get("/stats", statsHandler.Get)
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
