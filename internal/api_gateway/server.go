package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aidledger-audit/internal/api_gateway/handler"
	"github.com/aidledger-audit/internal/api_gateway/service"
	"github.com/aidledger-audit/internal/config"
	"github.com/aidledger-audit/internal/platform/metrics"
)

// Services groups the application services exposed over HTTP
type Services struct {
	Shipments      service.ShipmentService
	Reconciliation service.ReconciliationService
	Predictions    service.PredictionService
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger // For structured logging
	httpServer *http.Server // Underlying HTTP server
	httpRouter *gin.Engine  // Gin router instance
}

// NewServer creates and configures a new HTTP server with the given services.
// db may be nil to skip the database check in /health. gatherer may be nil,
// in which case /metrics is not served.
func NewServer(log *slog.Logger, cfg *config.Config, svcs Services, ledgerStatus LedgerStatus, db DatabasePinger, gatherer prometheus.Gatherer, m *metrics.Metrics) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	setupRouter(log, httpRouter, handlers{
		shipments:      handler.NewShipmentHandler(log, svcs.Shipments),
		reconciliation: handler.NewReconciliationHandler(log, svcs.Reconciliation),
		predictions:    handler.NewPredictionHandler(log, svcs.Predictions),
	}, ledgerStatus, db, gatherer, m)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Handler exposes the configured router
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server, waiting at most the write timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
