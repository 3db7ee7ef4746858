// Package committer moves audit entries and prediction hashes onto the
// ledger in the background: a bounded queue of commit jobs, a retrying
// submitter, a confirmation monitor and a sweeper for stale pending work.
package committer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aidledger-audit/internal/config"
	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/domain/shared"
	"github.com/aidledger-audit/internal/platform/metrics"
)

// RetryExecutor runs a ledger submission, retrying failures with exponential
// backoff. Errors that cannot heal in-process are returned immediately.
type RetryExecutor struct {
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewRetryExecutor(logger *slog.Logger, cfg config.RetryConfig, m *metrics.Metrics) *RetryExecutor {
	return &RetryExecutor{
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		logger:     logger.With("component", "retry_executor"),
		metrics:    m,
		sleep:      sleepCtx,
	}
}

// Do calls op until it succeeds or the retries are spent. The delay before
// retry n (starting at 0) is baseDelay * 2^n. The last failure is returned
// wrapped in ledger.TerminalOpError.
func (r *RetryExecutor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt >= r.maxRetries {
			return ledger.TerminalOpError{Attempts: attempt + 1, Err: err}
		}

		delay := r.baseDelay << attempt
		r.logger.Warn("Ledger submission failed, retrying",
			"attempt", attempt+1,
			"retry_in", delay,
			"error", err,
		)
		r.metrics.IncrementSubmitRetries()

		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return ledger.TerminalOpError{Attempts: attempt + 1, Err: err}
		}
	}
}

func retryable(err error) bool {
	return !errors.Is(err, ledger.ErrUnavailable) && !errors.Is(err, shared.ErrValidation)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
