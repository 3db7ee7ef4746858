package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aidledger-audit/internal/api_gateway"
	"github.com/aidledger-audit/internal/api_gateway/service"
	"github.com/aidledger-audit/internal/config"
	"github.com/aidledger-audit/internal/data/cache"
	"github.com/aidledger-audit/internal/data/postgres"
	"github.com/aidledger-audit/internal/domain/catalog"
	"github.com/aidledger-audit/internal/domain/ledger"
	committer "github.com/aidledger-audit/internal/ledger_committer"
	gateway "github.com/aidledger-audit/internal/ledger_gateway"
	"github.com/aidledger-audit/internal/logger"
	"github.com/aidledger-audit/internal/platform/forecast"
	"github.com/aidledger-audit/internal/platform/metrics"
	"github.com/aidledger-audit/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Aid Audit API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(registry)

	// Apply schema migrations before opening the pool
	if err := persistence.RunMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
		log.Error("Failed to apply database migrations", "error", err)
		os.Exit(1)
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// The ledger is optional: without it the API keeps serving from the database
	ledgerGateway, err := gateway.New(appCtx, log.With("component", "ledger_gateway"), cfg)
	if err != nil {
		log.Warn("Ledger unavailable, running without ledger commits", "error", err)
	}

	// Initialize repositories
	shipmentRepo := postgres.NewShipmentRepository(log, postgresDB)
	auditRepo := postgres.NewAuditRepository(log, postgresDB)
	predictionRepo := postgres.NewPredictionRepository(log, postgresDB)

	var catalogRepo catalog.Repository = postgres.NewCatalogRepository(log, postgresDB)
	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, catalog cache disabled", "error", err)
	}
	if redisClient != nil {
		catalogRepo = cache.NewCatalogCache(log, redisClient.Client, catalogRepo, cfg.Redis.CatalogTTL)
	}

	// Ledger commit pipeline
	finalizers := committer.Finalizers{
		ledger.KindShipmentLog:    auditRepo,
		ledger.KindPredictionHash: predictionRepo,
	}
	monitor, err := committer.NewMonitor(log, ledgerGateway, finalizers, cfg.Ledger, cfg.Monitor, appMetrics)
	if err != nil {
		log.Error("Failed to initialize transaction monitor", "error", err)
		os.Exit(1)
	}
	retry := committer.NewRetryExecutor(log, cfg.Retry, appMetrics)
	commitQueue, err := committer.NewCommitter(log, ledgerGateway, retry, monitor, finalizers, cfg.CommitQueue, appMetrics)
	if err != nil {
		log.Error("Failed to initialize commit queue", "error", err)
		os.Exit(1)
	}
	sweeper := committer.NewSweeper(log, cfg.Sweeper, auditRepo, predictionRepo, commitQueue, monitor)

	pipelineCtx, cancelPipeline := context.WithCancel(appCtx)
	defer cancelPipeline()
	commitQueue.Start(pipelineCtx)
	if err := sweeper.Start(pipelineCtx); err != nil {
		log.Error("Failed to start pending sweeper", "error", err)
		os.Exit(1)
	}

	// Initialize services
	forecaster := forecast.NewClient(log, cfg.Forecast)
	services := api_gateway.Services{
		Shipments:      service.NewShipmentService(log, postgresDB, shipmentRepo, auditRepo, predictionRepo, catalogRepo, commitQueue),
		Reconciliation: service.NewReconciliationService(log, ledgerGateway, shipmentRepo, auditRepo, appMetrics),
		Predictions:    service.NewPredictionService(log, predictionRepo, forecaster, commitQueue),
	}

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, services, ledgerGateway, postgresDB, registry, appMetrics)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the pipeline stops taking jobs
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Unfinished commits stay pending and are picked up by the next sweep
	sweeper.Stop()
	cancelPipeline()
	if err = commitQueue.Stop(cfg.Server.ShutdownTimeout); err != nil {
		log.Error("Error stopping commit queue", "error", err)
	}
	if err = monitor.Shutdown(cfg.Server.ShutdownTimeout); err != nil {
		log.Error("Error stopping transaction monitor", "error", err)
	}

	cancelAppCtx()

	if err = ledgerGateway.Close(shutdownCtx); err != nil {
		log.Error("Error closing ledger gateway", "error", err)
	}

	if redisClient != nil {
		if err = redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
