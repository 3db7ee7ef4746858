package committer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/aidledger-audit/internal/domain/audit"
	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/domain/prediction"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Append(ctx context.Context, subject string, kind ledger.Kind, payload ledger.Payload) (string, error) {
	args := m.Called(ctx, subject, kind, payload)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Query(ctx context.Context, subject string) ([]ledger.LogEntry, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.LogEntry), args.Error(1)
}

func (m *MockGateway) Confirmation(ctx context.Context, txRef string) (*ledger.Receipt, error) {
	args := m.Called(ctx, txRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Receipt), args.Error(1)
}

func (m *MockGateway) Available() bool {
	return m.Called().Bool(0)
}

func (m *MockGateway) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockFinalizer struct {
	mock.Mock
}

func (m *MockFinalizer) SetProvisionalRef(ctx context.Context, id uuid.UUID, ref string) error {
	return m.Called(ctx, id, ref).Error(0)
}

func (m *MockFinalizer) FinalizeLedgerRef(ctx context.Context, id uuid.UUID, ref string) error {
	return m.Called(ctx, id, ref).Error(0)
}

type MockWatcher struct {
	mock.Mock
}

func (m *MockWatcher) Watch(ctx context.Context, w Watch) error {
	return m.Called(ctx, w).Error(0)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(job Job) bool {
	return m.Called(job).Bool(0)
}

type MockAuditLister struct {
	mock.Mock
}

func (m *MockAuditLister) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*audit.Pending, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Pending), args.Error(1)
}

type MockPredictionLister struct {
	mock.Mock
}

func (m *MockPredictionLister) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*prediction.Pending, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*prediction.Pending), args.Error(1)
}
