package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/aidledger-audit/internal/domain/ledger"
)

// WorkerPoolSealingService runs a SealingService on a bounded ants pool
type WorkerPoolSealingService struct {
	baseService SealingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolSealingService(
	baseService SealingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolSealingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolSealingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

type sealResult struct {
	record *ledger.Record
	err    error
}

// Seal submits the submission to the pool and waits for its outcome.
func (s *WorkerPoolSealingService) Seal(ctx context.Context, submission *ledger.Submission) (*ledger.Record, error) {
	resultChan := make(chan sealResult, 1)

	// Copy the submission so the caller may reuse its value
	submissionCopy := *submission

	err := s.pool.Submit(func() {
		record, err := s.baseService.Seal(ctx, &submissionCopy)
		resultChan <- sealResult{record: record, err: err}
	})
	if err != nil {
		s.logger.Error("Failed to submit submission to worker pool",
			"tx_hash", submission.TxHash,
			"error", err,
		)
		return nil, err
	}

	res := <-resultChan
	return res.record, res.err
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolSealingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolSealingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolSealingService) Capacity() int {
	return s.pool.Cap()
}
