// Package api serves the JSON HTTP surface over the running app.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/signalbook/internal/api/handler/api"
	"github.com/newthinker/signalbook/internal/api/response"
	"github.com/newthinker/signalbook/internal/app"
	"github.com/newthinker/signalbook/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for signalbook
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
	deps       Dependencies
}

// Config holds server configuration
type Config struct {
	Host string
	Port int
	// MetricsPath mounts the Prometheus handler when Dependencies.Metrics is set.
	MetricsPath    string
	StreamInterval time.Duration
}

// Dependencies holds the components the handlers read from and command.
type Dependencies struct {
	App     *app.App
	Metrics *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.App == nil {
		return nil, fmt.Errorf("api: app is required")
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
		deps:   deps,
	}
	s.setupRoutes(cfg)

	var h http.Handler = mux
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	s.handler = metrics.LoggingMiddleware(logger)(h)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config) {
	a := s.deps.App

	account := api.NewAccountHandler(a.Engine())
	trades := api.NewTradesHandler(a.Engine(), a)
	signals := api.NewSignalsHandler(a.Signals(), a)
	riskH := api.NewRiskHandler(a.Risk(), a.Engine())
	stats := api.NewAnalyticsHandler(a.Engine())
	stream := api.NewStreamHandler(a.Engine(), cfg.StreamInterval, s.logger.Named("stream"))

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("GET /api/account", account.Account)
	s.mux.HandleFunc("GET /api/snapshot", account.Snapshot)
	s.mux.HandleFunc("GET /api/quotes", account.Quotes)
	s.mux.HandleFunc("GET /api/quotes/{symbol}", account.Quote)
	s.mux.HandleFunc("GET /api/stream", stream.Snapshots)

	s.mux.HandleFunc("GET /api/trades", trades.List)
	s.mux.HandleFunc("GET /api/trades/{id}", trades.Get)
	s.mux.HandleFunc("POST /api/trades/{id}/close", trades.Close)
	s.mux.HandleFunc("POST /api/prices/refresh", trades.Refresh)

	s.mux.HandleFunc("GET /api/signals", signals.List)
	s.mux.HandleFunc("GET /api/signals/{id}", signals.GetByID)
	s.mux.HandleFunc("POST /api/signals", signals.Create)

	s.mux.HandleFunc("GET /api/risk/settings", riskH.Settings)
	s.mux.HandleFunc("PUT /api/risk/settings", riskH.UpdateSettings)
	s.mux.HandleFunc("GET /api/risk/heat", riskH.Heat)

	s.mux.HandleFunc("GET /api/analytics/performance", stats.Performance)
	s.mux.HandleFunc("GET /api/analytics/equity", stats.Equity)
	s.mux.HandleFunc("GET /api/analytics/distribution", stats.Distribution)
	s.mux.HandleFunc("GET /api/analytics/extended", stats.Extended)
	s.mux.HandleFunc("GET /api/analytics/report", stats.Report)

	if s.deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(s.deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"running": s.deps.App.Running(),
	})
}
