package committer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aidledger-audit/internal/config"
	"github.com/aidledger-audit/internal/domain/audit"
	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/platform/metrics"
)

type committerFixture struct {
	committer *Committer
	gateway   *MockGateway
	watcher   *MockWatcher
	audits    *MockFinalizer
	preds     *MockFinalizer
	metrics   *metrics.Metrics
}

func newCommitterFixture(t *testing.T, capacity int) *committerFixture {
	t.Helper()
	f := &committerFixture{
		gateway: new(MockGateway),
		watcher: new(MockWatcher),
		audits:  new(MockFinalizer),
		preds:   new(MockFinalizer),
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	retry, _ := newTestRetry(f.metrics)

	c, err := NewCommitter(newTestLogger(), f.gateway, retry, f.watcher,
		Finalizers{ledger.KindShipmentLog: f.audits, ledger.KindPredictionHash: f.preds},
		config.CommitQueueConfig{Capacity: capacity, Workers: 2},
		f.metrics,
	)
	require.NoError(t, err)
	f.committer = c
	return f
}

func shipmentJob() Job {
	return Job{
		Kind:    ledger.KindShipmentLog,
		Subject: "AID-0001",
		Payload: ledger.ShipmentLog("Departed", "Gaziantep Hub"),
		RefID:   uuid.New(),
	}
}

func TestCommitter_Enqueue_DropsWhenFull(t *testing.T) {
	f := newCommitterFixture(t, 1)

	assert.True(t, f.committer.Enqueue(shipmentJob()))
	assert.False(t, f.committer.Enqueue(shipmentJob()))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CommitQueueDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CommitQueueDepth))
}

func TestCommitter_Commit_SubmitsAndWatches(t *testing.T) {
	f := newCommitterFixture(t, 4)
	job := shipmentJob()

	f.gateway.On("Available").Return(true)
	f.gateway.On("Append", mock.Anything, "AID-0001", ledger.KindShipmentLog, job.Payload).Return("0xabc", nil).Once()
	f.audits.On("SetProvisionalRef", mock.Anything, job.RefID, "0xabc").Return(nil).Once()
	f.watcher.On("Watch", mock.Anything, mock.MatchedBy(func(w Watch) bool {
		return w.RefID == job.RefID && w.TxRef == "0xabc" && w.Kind == ledger.KindShipmentLog
	})).Return(nil).Once()

	f.committer.commit(context.Background(), job)

	f.gateway.AssertExpectations(t)
	f.audits.AssertExpectations(t)
	f.watcher.AssertExpectations(t)
	f.preds.AssertNotCalled(t, "SetProvisionalRef", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LedgerCommits.WithLabelValues(string(ledger.KindShipmentLog), metrics.OutcomeSubmitted)))
}

func TestCommitter_Commit_RoutesPredictionsToTheirFinalizer(t *testing.T) {
	f := newCommitterFixture(t, 4)
	job := Job{
		Kind:    ledger.KindPredictionHash,
		Subject: "hatay",
		Payload: ledger.PredictionHash("hatay", "9f2c"),
		RefID:   uuid.New(),
	}

	f.gateway.On("Available").Return(true)
	f.gateway.On("Append", mock.Anything, "hatay", ledger.KindPredictionHash, job.Payload).Return("0xdef", nil)
	f.preds.On("SetProvisionalRef", mock.Anything, job.RefID, "0xdef").Return(nil).Once()
	f.watcher.On("Watch", mock.Anything, mock.Anything).Return(nil)

	f.committer.commit(context.Background(), job)

	f.preds.AssertExpectations(t)
	f.audits.AssertNotCalled(t, "SetProvisionalRef", mock.Anything, mock.Anything, mock.Anything)
}

func TestCommitter_Commit_UnavailableMarksFailed(t *testing.T) {
	f := newCommitterFixture(t, 4)
	job := shipmentJob()

	f.gateway.On("Available").Return(false)
	f.audits.On("FinalizeLedgerRef", mock.Anything, job.RefID, audit.LedgerRefFailed).Return(nil).Once()

	f.committer.commit(context.Background(), job)

	f.gateway.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.audits.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LedgerCommits.WithLabelValues(string(ledger.KindShipmentLog), metrics.OutcomeFailed)))
}

func TestCommitter_Commit_RetriesThenMarksFailed(t *testing.T) {
	f := newCommitterFixture(t, 4)
	job := shipmentJob()

	f.gateway.On("Available").Return(true)
	f.gateway.On("Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", ledger.TransientOpError{Op: "append", Err: errors.New("broker down")})
	f.audits.On("FinalizeLedgerRef", mock.Anything, job.RefID, audit.LedgerRefFailed).Return(nil).Once()

	f.committer.commit(context.Background(), job)

	f.gateway.AssertNumberOfCalls(t, "Append", 4)
	f.audits.AssertExpectations(t)
	f.watcher.AssertNotCalled(t, "Watch", mock.Anything, mock.Anything)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.SubmitRetries))
}

func TestCommitter_Commit_ProvisionalRefErrorStillWatches(t *testing.T) {
	f := newCommitterFixture(t, 4)
	job := shipmentJob()

	f.gateway.On("Available").Return(true)
	f.gateway.On("Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("0xabc", nil)
	f.audits.On("SetProvisionalRef", mock.Anything, job.RefID, "0xabc").Return(errors.New("db down"))
	f.watcher.On("Watch", mock.Anything, mock.Anything).Return(nil).Once()

	f.committer.commit(context.Background(), job)

	f.watcher.AssertExpectations(t)
}

func TestCommitter_StartDrainsQueue(t *testing.T) {
	f := newCommitterFixture(t, 4)
	job := shipmentJob()
	watched := make(chan struct{})

	f.gateway.On("Available").Return(true)
	f.gateway.On("Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("0xabc", nil)
	f.audits.On("SetProvisionalRef", mock.Anything, job.RefID, "0xabc").Return(nil)
	f.watcher.On("Watch", mock.Anything, mock.Anything).Return(nil).Once().
		Run(func(mock.Arguments) { close(watched) })

	ctx, cancel := context.WithCancel(context.Background())
	f.committer.Start(ctx)
	require.True(t, f.committer.Enqueue(job))

	select {
	case <-watched:
	case <-time.After(time.Second):
		t.Fatal("queued job was not committed")
	}

	cancel()
	assert.NoError(t, f.committer.Stop(time.Second))
}

func TestCommitter_Enqueue_SkipsRowAlreadyQueued(t *testing.T) {
	f := newCommitterFixture(t, 4)
	job := shipmentJob()

	assert.True(t, f.committer.Enqueue(job))
	assert.True(t, f.committer.Enqueue(job))

	assert.Len(t, f.committer.queue, 1)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.CommitQueueDropped))
}

func TestCommitter_Enqueue_DroppedJobCanBeOfferedAgain(t *testing.T) {
	f := newCommitterFixture(t, 1)
	first, second := shipmentJob(), shipmentJob()

	require.True(t, f.committer.Enqueue(first))
	require.False(t, f.committer.Enqueue(second))
	assert.False(t, f.committer.inFlight(second.RefID))

	<-f.committer.queue
	f.committer.release(first.RefID)
	assert.True(t, f.committer.Enqueue(second))
}

func TestCommitter_Commit_ReleasesRow(t *testing.T) {
	f := newCommitterFixture(t, 4)
	job := shipmentJob()

	f.gateway.On("Available").Return(false)
	f.audits.On("FinalizeLedgerRef", mock.Anything, job.RefID, audit.LedgerRefFailed).Return(nil)

	require.True(t, f.committer.Enqueue(job))
	<-f.committer.queue
	f.committer.commit(context.Background(), job)

	assert.False(t, f.committer.inFlight(job.RefID))
}
