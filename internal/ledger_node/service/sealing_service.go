package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/platform/metrics"
)

// SealingServiceImpl assigns block numbers and stores records in the ledger collection
type SealingServiceImpl struct {
	records ledger.Repository
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewSealingService(logger *slog.Logger, records ledger.Repository, m *metrics.Metrics) SealingService {
	return &SealingServiceImpl{
		records: records,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

func (s *SealingServiceImpl) Seal(ctx context.Context, submission *ledger.Submission) (*ledger.Record, error) {
	logger := s.logger.With("tx_hash", submission.TxHash, "subject", submission.Subject, "kind", submission.Kind)

	if err := submission.Validate(); err != nil {
		logger.Warn("Rejecting invalid submission", "error", err)
		if rejectErr := s.reject(ctx, submission, err.Error()); rejectErr != nil {
			return nil, rejectErr
		}
		return nil, err
	}

	existing, err := s.records.GetByTxHash(ctx, submission.TxHash)
	if err == nil {
		logger.Info("Submission already sealed", "block_number", existing.BlockNumber, "state", existing.State)
		return existing, nil
	}
	if !errors.Is(err, ledger.ErrRecordNotFound{}) {
		return nil, fmt.Errorf("failed to look up ledger record: %w", err)
	}

	block, err := s.records.NextBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate block number: %w", err)
	}

	record := &ledger.Record{
		TxHash:      submission.TxHash,
		Subject:     submission.Subject,
		Kind:        submission.Kind,
		Payload:     submission.Payload,
		State:       ledger.RecordStateConfirmed,
		BlockNumber: block,
		Timestamp:   s.now().Unix(),
		SubmittedAt: submission.SubmittedAt,
	}

	if err := s.records.Insert(ctx, record); err != nil {
		if errors.Is(err, ledger.ErrDuplicateRecord{}) {
			// Lost a race with a redelivery; the block number stays unused
			logger.Info("Submission sealed concurrently")
			return s.records.GetByTxHash(ctx, submission.TxHash)
		}
		return nil, err
	}

	s.metrics.ObserveSealed(string(ledger.RecordStateConfirmed))
	logger.Info("Sealed submission", "block_number", block)
	return record, nil
}

// reject stores a rejected record so that confirmation polling ends. Without a
// tx hash there is nothing a caller could poll, so nothing is stored.
func (s *SealingServiceImpl) reject(ctx context.Context, submission *ledger.Submission, reason string) error {
	if submission.TxHash == "" {
		s.metrics.ObserveSealed(string(ledger.RecordStateRejected))
		return nil
	}

	record := &ledger.Record{
		TxHash:      submission.TxHash,
		Subject:     submission.Subject,
		Kind:        submission.Kind,
		Payload:     submission.Payload,
		State:       ledger.RecordStateRejected,
		Reason:      reason,
		Timestamp:   s.now().Unix(),
		SubmittedAt: submission.SubmittedAt,
	}
	if err := s.records.Insert(ctx, record); err != nil && !errors.Is(err, ledger.ErrDuplicateRecord{}) {
		return fmt.Errorf("failed to store rejected record: %w", err)
	}

	s.metrics.ObserveSealed(string(ledger.RecordStateRejected))
	return nil
}
