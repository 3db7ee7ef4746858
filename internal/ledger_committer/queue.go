package committer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/aidledger-audit/internal/config"
	"github.com/aidledger-audit/internal/domain/audit"
	"github.com/aidledger-audit/internal/domain/ledger"
	gateway "github.com/aidledger-audit/internal/ledger_gateway"
	"github.com/aidledger-audit/internal/platform/metrics"
)

// Job is one ledger write waiting to be submitted
type Job struct {
	Kind    ledger.Kind
	Subject string // barcode or region id
	Payload ledger.Payload
	RefID   uuid.UUID // row whose ledger reference records the outcome
}

// Watcher is the part of the transaction monitor the committer needs
type Watcher interface {
	Watch(ctx context.Context, w Watch) error
}

// Committer drains a bounded queue of ledger jobs on a worker pool. Producers
// never wait: when the queue is full the job is dropped and its row stays
// pending until the sweeper finds it. A row has at most one job queued or
// being submitted at a time.
type Committer struct {
	queue      chan Job
	mu         sync.Mutex
	inflight   map[uuid.UUID]struct{}
	pool       *ants.Pool
	gateway    gateway.Gateway
	retry      *RetryExecutor
	watcher    Watcher
	finalizers Finalizers
	logger     *slog.Logger
	metrics    *metrics.Metrics
	wg         sync.WaitGroup
}

func NewCommitter(
	logger *slog.Logger,
	gw gateway.Gateway,
	retry *RetryExecutor,
	watcher Watcher,
	finalizers Finalizers,
	cfg config.CommitQueueConfig,
	m *metrics.Metrics,
) (*Committer, error) {
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create commit pool: %w", err)
	}

	return &Committer{
		queue:      make(chan Job, cfg.Capacity),
		inflight:   make(map[uuid.UUID]struct{}),
		pool:       pool,
		gateway:    gw,
		retry:      retry,
		watcher:    watcher,
		finalizers: finalizers,
		logger:     logger.With("component", "ledger_committer"),
		metrics:    m,
	}, nil
}

// Enqueue offers job to the queue and reports whether it was accepted. A job
// for a row that is already queued or being submitted is accepted without
// queueing it again.
func (c *Committer) Enqueue(job Job) bool {
	if !c.claim(job.RefID) {
		c.logger.Debug("Ledger job already queued or in flight",
			"kind", job.Kind,
			"ref_id", job.RefID.String(),
		)
		return true
	}

	select {
	case c.queue <- job:
		c.metrics.SetQueueDepth(len(c.queue))
		return true
	default:
		c.release(job.RefID)
		c.logger.Warn("Commit queue full, dropping ledger job",
			"kind", job.Kind,
			"subject", job.Subject,
			"ref_id", job.RefID.String(),
		)
		c.metrics.IncrementQueueDropped()
		return false
	}
}

// Start dispatches queued jobs to the pool until ctx is cancelled
func (c *Committer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Commit dispatcher stopped", "queued", len(c.queue))
				return
			case job := <-c.queue:
				c.metrics.SetQueueDepth(len(c.queue))
				if err := c.pool.Submit(func() { c.commit(ctx, job) }); err != nil {
					c.logger.Error("Failed to submit commit job to pool", "ref_id", job.RefID.String(), "error", err)
					c.release(job.RefID)
				}
			}
		}
	}()
}

// commit submits one job and hands the provisional reference to the monitor
func (c *Committer) commit(ctx context.Context, job Job) {
	defer c.release(job.RefID)
	logger := c.logger.With("kind", job.Kind, "subject", job.Subject, "ref_id", job.RefID.String())

	if !c.gateway.Available() {
		logger.Warn("Ledger unavailable, marking commit failed")
		c.fail(ctx, logger, job, metrics.OutcomeFailed)
		return
	}

	var txRef string
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		ref, err := c.gateway.Append(ctx, job.Subject, job.Kind, job.Payload)
		if err != nil {
			return err
		}
		txRef = ref
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("Commit interrupted by shutdown, leaving pending", "error", err)
			return
		}
		logger.Error("Ledger submission failed", "error", err)
		c.fail(ctx, logger, job, metrics.OutcomeFailed)
		return
	}

	submittedAt := time.Now()
	c.metrics.ObserveCommit(string(job.Kind), metrics.OutcomeSubmitted)

	fin, err := c.finalizers.forKind(job.Kind)
	if err != nil {
		logger.Error("Cannot record provisional reference", "error", err)
		return
	}
	if err := fin.SetProvisionalRef(ctx, job.RefID, txRef); err != nil {
		// The monitor can still finalize without it
		logger.Warn("Failed to record provisional reference", "tx_ref", txRef, "error", err)
	}

	logger.Info("Ledger transaction submitted", "tx_ref", txRef)
	if err := c.watcher.Watch(ctx, Watch{
		Kind:        job.Kind,
		RefID:       job.RefID,
		TxRef:       txRef,
		SubmittedAt: submittedAt,
	}); err != nil {
		logger.Error("Failed to watch submitted transaction", "tx_ref", txRef, "error", err)
	}
}

func (c *Committer) claim(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inflight[id]; ok {
		return false
	}
	c.inflight[id] = struct{}{}
	return true
}

func (c *Committer) release(id uuid.UUID) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}

func (c *Committer) inFlight(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[id]
	return ok
}

func (c *Committer) fail(ctx context.Context, logger *slog.Logger, job Job, outcome string) {
	c.metrics.ObserveCommit(string(job.Kind), outcome)

	fin, err := c.finalizers.forKind(job.Kind)
	if err != nil {
		logger.Error("Cannot finalize ledger reference", "error", err)
		return
	}
	if err := fin.FinalizeLedgerRef(ctx, job.RefID, audit.LedgerRefFailed); err != nil && !alreadyFinal(err) {
		logger.Error("Failed to mark ledger reference failed", "error", err)
	}
}

// Stop waits for the dispatcher to exit, then up to timeout for in-flight commits
func (c *Committer) Stop(timeout time.Duration) error {
	c.wg.Wait()
	err := c.pool.ReleaseTimeout(timeout)
	if errors.Is(err, ants.ErrPoolClosed) {
		return nil
	}
	return err
}
