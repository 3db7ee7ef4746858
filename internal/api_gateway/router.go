package api_gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aidledger-audit/internal/api_gateway/handler"
	"github.com/aidledger-audit/internal/api_gateway/middleware"
	"github.com/aidledger-audit/internal/platform/metrics"
)

// LedgerStatus reports whether ledger commits can currently be made
type LedgerStatus interface {
	Available() bool
}

// DatabasePinger checks that the system of record is reachable
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

const healthPingTimeout = 2 * time.Second

type handlers struct {
	shipments      *handler.ShipmentHandler
	reconciliation *handler.ReconciliationHandler
	predictions    *handler.PredictionHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	h handlers,
	ledgerStatus LedgerStatus,
	db DatabasePinger,
	gatherer prometheus.Gatherer,
	m *metrics.Metrics,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(m))

	v1 := r.Group("/api/v1")
	{
		shipments := v1.Group("/shipments")
		{
			shipments.POST("", h.shipments.Register)
			shipments.GET("/:barcode", h.shipments.Get)
			shipments.GET("/:barcode/audit-log", h.shipments.AuditLog)
			shipments.POST("/:barcode/transitions", h.shipments.Transition)
			shipments.POST("/:barcode/delivery", h.shipments.ConfirmDelivery)
		}

		v1.GET("/reconciliation/:barcode", h.reconciliation.Reconcile)

		predictions := v1.Group("/predictions")
		{
			predictions.POST("", h.predictions.Create)
			predictions.GET("/accuracy", h.predictions.Accuracy)
			predictions.GET("/:id", h.predictions.GetByID)
		}
	}

	// A ledger outage degrades nothing the API serves; a database outage does
	r.GET("/health", func(c *gin.Context) {
		code, status := http.StatusOK, "ok"
		ledger, database := "available", "available"
		if !ledgerStatus.Available() {
			ledger = "unavailable"
		}
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				logger.Warn("Health check database ping failed", "error", err)
				code, status, database = http.StatusServiceUnavailable, "degraded", "unavailable"
			}
		}
		c.JSON(code, gin.H{"status": status, "ledger": ledger, "database": database, "timestamp": time.Now().UTC()})
	})

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}
