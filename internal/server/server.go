// Package server exposes the normalized market API over HTTP and streams run
// events over WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/marketnorm/internal/domain"
	"github.com/alanyoungcy/marketnorm/internal/server/handler"
	"github.com/alanyoungcy/marketnorm/internal/server/middleware"
	"github.com/alanyoungcy/marketnorm/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimiter, when set with a positive RateLimit, limits each client to
	// RateLimit requests per RateWindow.
	RateLimiter domain.RateLimiter
	RateLimit   int
	RateWindow  time.Duration
}

// Handlers aggregates the HTTP handlers the server registers. Health and
// Pipeline are required; a nil Markets or Normalize leaves its routes out.
type Handlers struct {
	Health    *handler.HealthHandler
	Markets   *handler.MarketHandler
	Normalize *handler.NormalizeHandler
	Pipeline  *handler.PipelineHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (rate limit, auth, logging, CORS) and attaches the
// WebSocket hub when one is given.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	api := http.NewServeMux()

	if handlers.Markets != nil {
		api.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
		api.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	}
	if handlers.Normalize != nil {
		api.HandleFunc("POST /api/normalize", handlers.Normalize.Normalize)
		api.HandleFunc("GET /api/runs", handlers.Normalize.ListRuns)
	}
	api.HandleFunc("POST /api/pipeline/trigger", handlers.Pipeline.TriggerPipeline)
	if wsHub != nil {
		api.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var protected http.Handler = api
	if cfg.RateLimiter != nil && cfg.RateLimit > 0 {
		protected = middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit, cfg.RateWindow, logger)(protected)
	}
	protected = middleware.Auth(cfg.APIKey)(protected)

	// Health check bypasses auth and rate limiting.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.Handle("/", protected)

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
