package service

import (
	"log/slog"

	"github.com/aidledger-audit/internal/config"
	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/platform/metrics"
)

// CreateSealingService builds the sealing service behind a worker pool,
// falling back to the bare service if the pool cannot be created.
func CreateSealingService(
	records ledger.Repository,
	logger *slog.Logger,
	cfg *config.Config,
	m *metrics.Metrics,
) SealingService {
	baseService := NewSealingService(logger.With("component", "sealing_service"), records, m)

	workerPoolService, err := NewWorkerPoolSealingService(
		baseService,
		WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool sealing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
