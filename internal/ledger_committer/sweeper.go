package committer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aidledger-audit/internal/config"
	"github.com/aidledger-audit/internal/domain/audit"
	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/domain/prediction"
)

// StaleAuditLister finds audit entries that never left pending
type StaleAuditLister interface {
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*audit.Pending, error)
}

// StalePredictionLister finds prediction hashes that never left pending
type StalePredictionLister interface {
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*prediction.Pending, error)
}

// Enqueuer accepts ledger jobs without blocking
type Enqueuer interface {
	Enqueue(job Job) bool
}

// Sweeper periodically recovers rows whose commit was lost to a full queue or
// a restart. Rows with a provisional reference go back to the monitor; the
// rest are submitted again.
type Sweeper struct {
	cron        *cron.Cron
	schedule    string
	staleAfter  time.Duration
	batchSize   int
	audits      StaleAuditLister
	predictions StalePredictionLister
	enqueuer    Enqueuer
	watcher     Watcher
	logger      *slog.Logger
	now         func() time.Time
}

func NewSweeper(
	logger *slog.Logger,
	cfg config.SweeperConfig,
	audits StaleAuditLister,
	predictions StalePredictionLister,
	enqueuer Enqueuer,
	watcher Watcher,
) *Sweeper {
	return &Sweeper{
		cron:        cron.New(),
		schedule:    cfg.Schedule,
		staleAfter:  cfg.StaleAfter,
		batchSize:   cfg.BatchSize,
		audits:      audits,
		predictions: predictions,
		enqueuer:    enqueuer,
		watcher:     watcher,
		logger:      logger.With("component", "pending_sweeper"),
		now:         time.Now,
	}
}

// Start schedules Sweep. Each run uses ctx, so cancelling it stops in-flight work.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error("Pending sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweeper schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("Pending sweeper started", "schedule", s.schedule, "stale_after", s.staleAfter)
	return nil
}

// Stop halts the schedule and waits for a running sweep to return
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep requeues one batch of stale audit entries and one of stale predictions
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := s.now().Add(-s.staleAfter)

	entries, err := s.audits.ListStalePending(ctx, cutoff, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list stale audit entries: %w", err)
	}
	for _, e := range entries {
		s.recover(ctx, e.ProvisionalRef, e.CreatedAt, Job{
			Kind:    ledger.KindShipmentLog,
			Subject: e.Barcode,
			Payload: ledger.ShipmentLog(e.Status, e.LocationLabel),
			RefID:   e.ID,
		})
	}

	preds, err := s.predictions.ListStalePending(ctx, cutoff, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list stale predictions: %w", err)
	}
	for _, p := range preds {
		s.recover(ctx, p.ProvisionalRef, p.CreatedAt, Job{
			Kind:    ledger.KindPredictionHash,
			Subject: p.RegionID,
			Payload: ledger.PredictionHash(p.RegionID, p.ContentHash),
			RefID:   p.ID,
		})
	}

	if len(entries)+len(preds) > 0 {
		s.logger.Info("Swept stale pending rows", "audit_entries", len(entries), "predictions", len(preds))
	}
	return nil
}

func (s *Sweeper) recover(ctx context.Context, provisional *string, createdAt time.Time, job Job) {
	id := job.RefID.String()
	if provisional != nil && *provisional != "" {
		err := s.watcher.Watch(ctx, Watch{
			Kind:        job.Kind,
			RefID:       job.RefID,
			TxRef:       *provisional,
			SubmittedAt: createdAt,
		})
		if err != nil {
			s.logger.Error("Failed to resume watching", "ref_id", id, "tx_ref", *provisional, "error", err)
		}
		return
	}

	if !s.enqueuer.Enqueue(job) {
		s.logger.Warn("Could not requeue stale row, will retry next sweep", "ref_id", id, "kind", job.Kind)
	}
}
