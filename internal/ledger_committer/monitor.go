package committer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/aidledger-audit/internal/config"
	"github.com/aidledger-audit/internal/domain/audit"
	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/domain/prediction"
	gateway "github.com/aidledger-audit/internal/ledger_gateway"
	"github.com/aidledger-audit/internal/platform/metrics"
)

// Finalizer records the ledger outcome on the row that asked for the commit.
// The audit and prediction repositories both implement it.
type Finalizer interface {
	SetProvisionalRef(ctx context.Context, id uuid.UUID, ref string) error

	// FinalizeLedgerRef is write-once; later calls fail with an
	// already-finalized error and leave the row untouched
	FinalizeLedgerRef(ctx context.Context, id uuid.UUID, ref string) error
}

// Finalizers routes each ledger kind to the table that tracks it
type Finalizers map[ledger.Kind]Finalizer

func (f Finalizers) forKind(kind ledger.Kind) (Finalizer, error) {
	fin, ok := f[kind]
	if !ok {
		return nil, fmt.Errorf("no finalizer registered for ledger kind %q", kind)
	}
	return fin, nil
}

// Watch identifies a submitted transaction to observe
type Watch struct {
	Kind        ledger.Kind
	RefID       uuid.UUID // audit entry or prediction id
	TxRef       string
	SubmittedAt time.Time
}

// Monitor observes submitted transactions until the ledger confirms or
// rejects them, or until the confirmation timeout, and finalizes the ledger
// reference accordingly. Outcomes are logged, never returned.
type Monitor struct {
	gateway      gateway.Gateway
	finalizers   Finalizers
	pool         *ants.Pool
	pollInterval time.Duration
	timeout      time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

func NewMonitor(logger *slog.Logger, gw gateway.Gateway, finalizers Finalizers, ledgerCfg config.LedgerConfig, cfg config.MonitorConfig, m *metrics.Metrics) (*Monitor, error) {
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create monitor pool: %w", err)
	}

	return &Monitor{
		gateway:      gw,
		finalizers:   finalizers,
		pool:         pool,
		pollInterval: ledgerCfg.PollInterval,
		timeout:      ledgerCfg.ConfirmationTimeout,
		logger:       logger.With("component", "transaction_monitor"),
		metrics:      m,
	}, nil
}

// Watch hands w to a pool worker. It blocks while every worker is busy.
func (m *Monitor) Watch(ctx context.Context, w Watch) error {
	if err := m.pool.Submit(func() { m.observe(ctx, w) }); err != nil {
		m.logger.Error("Failed to schedule confirmation watch",
			"tx_ref", w.TxRef,
			"ref_id", w.RefID.String(),
			"error", err,
		)
		return err
	}
	return nil
}

func (m *Monitor) observe(ctx context.Context, w Watch) {
	logger := m.logger.With("tx_ref", w.TxRef, "ref_id", w.RefID.String(), "kind", w.Kind)

	deadline := time.NewTimer(m.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := m.gateway.Confirmation(ctx, w.TxRef)
		switch {
		case err == nil:
			logger.Info("Ledger transaction confirmed", "block_number", receipt.BlockNumber)
			m.metrics.ObserveConfirmation(w.SubmittedAt)
			m.finish(ctx, logger, w, receipt.TxID, metrics.OutcomeConfirmed)
			return
		case errors.Is(err, ledger.ErrRejected{}):
			logger.Warn("Ledger rejected transaction", "error", err)
			m.finish(ctx, logger, w, audit.LedgerRefFailed, metrics.OutcomeRejected)
			return
		case errors.Is(err, ledger.ErrUnavailable):
			logger.Error("Ledger unavailable while awaiting confirmation")
			m.finish(ctx, logger, w, audit.LedgerRefFailed, metrics.OutcomeFailed)
			return
		case errors.Is(err, ledger.ErrNotConfirmed):
		default:
			logger.Warn("Confirmation check failed, will poll again", "error", err)
		}

		select {
		case <-ctx.Done():
			// Left pending; the sweeper picks it up after a restart
			logger.Info("Stopped watching transaction on shutdown")
			return
		case <-deadline.C:
			logger.Warn("Ledger transaction not confirmed in time", "timeout", m.timeout)
			m.finish(ctx, logger, w, audit.LedgerRefFailed, metrics.OutcomeTimedOut)
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) finish(ctx context.Context, logger *slog.Logger, w Watch, ref, outcome string) {
	m.metrics.ObserveCommit(string(w.Kind), outcome)

	fin, err := m.finalizers.forKind(w.Kind)
	if err != nil {
		logger.Error("Cannot finalize ledger reference", "error", err)
		return
	}

	if err := fin.FinalizeLedgerRef(ctx, w.RefID, ref); err != nil {
		if alreadyFinal(err) {
			logger.Debug("Ledger reference already final", "ref", ref)
			return
		}
		logger.Error("Failed to finalize ledger reference", "ref", ref, "error", err)
		return
	}
	logger.Info("Ledger reference finalized", "ref", ref, "outcome", outcome)
}

// Shutdown waits up to timeout for running watches to notice cancellation
func (m *Monitor) Shutdown(timeout time.Duration) error {
	m.logger.Info("Shutting down transaction monitor", "running_watches", m.pool.Running())
	return m.pool.ReleaseTimeout(timeout)
}

func alreadyFinal(err error) bool {
	return errors.Is(err, audit.ErrAlreadyFinalized{}) || errors.Is(err, prediction.ErrAlreadyFinalized{})
}
