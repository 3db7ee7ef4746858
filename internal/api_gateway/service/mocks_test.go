package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/aidledger-audit/internal/domain/audit"
	"github.com/aidledger-audit/internal/domain/catalog"
	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/domain/prediction"
	"github.com/aidledger-audit/internal/domain/shipment"
	committer "github.com/aidledger-audit/internal/ledger_committer"
	"github.com/aidledger-audit/internal/platform/forecast"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockTxRunner runs fn without a real transaction; it returns whatever fn returns
type MockTxRunner struct {
	calls int
}

func (m *MockTxRunner) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	m.calls++
	return fn(nil)
}

type MockShipmentRepository struct {
	mock.Mock
}

func (m *MockShipmentRepository) Create(ctx context.Context, s *shipment.Shipment) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockShipmentRepository) GetByBarcode(ctx context.Context, barcode string) (*shipment.Shipment, error) {
	args := m.Called(ctx, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipment.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) UpdateStatus(ctx context.Context, s *shipment.Shipment) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockShipmentRepository) LockByBarcode(ctx context.Context, barcode string) (*shipment.Shipment, error) {
	args := m.Called(ctx, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipment.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) WithTx(pgx.Tx) shipment.Repository { return m }

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, e *audit.Entry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockAuditRepository) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]*audit.Entry, error) {
	args := m.Called(ctx, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Entry), args.Error(1)
}

func (m *MockAuditRepository) SetProvisionalRef(ctx context.Context, id uuid.UUID, ref string) error {
	return m.Called(ctx, id, ref).Error(0)
}

func (m *MockAuditRepository) FinalizeLedgerRef(ctx context.Context, id uuid.UUID, ref string) error {
	return m.Called(ctx, id, ref).Error(0)
}

func (m *MockAuditRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*audit.Pending, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Pending), args.Error(1)
}

func (m *MockAuditRepository) WithTx(pgx.Tx) audit.Repository { return m }

type MockPredictionRepository struct {
	mock.Mock
}

func (m *MockPredictionRepository) Create(ctx context.Context, p *prediction.Prediction) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPredictionRepository) GetByID(ctx context.Context, id uuid.UUID) (*prediction.Prediction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*prediction.Prediction), args.Error(1)
}

func (m *MockPredictionRepository) UpdateActuals(ctx context.Context, p *prediction.Prediction) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPredictionRepository) ListWithActuals(ctx context.Context) ([]*prediction.Prediction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*prediction.Prediction), args.Error(1)
}

func (m *MockPredictionRepository) SetProvisionalRef(ctx context.Context, id uuid.UUID, ref string) error {
	return m.Called(ctx, id, ref).Error(0)
}

func (m *MockPredictionRepository) FinalizeLedgerRef(ctx context.Context, id uuid.UUID, ref string) error {
	return m.Called(ctx, id, ref).Error(0)
}

func (m *MockPredictionRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*prediction.Pending, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*prediction.Pending), args.Error(1)
}

func (m *MockPredictionRepository) WithTx(pgx.Tx) prediction.Repository { return m }

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) GetLocation(ctx context.Context, id uuid.UUID) (*catalog.Location, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Location), args.Error(1)
}

func (m *MockCatalogRepository) GetActor(ctx context.Context, id uuid.UUID) (*catalog.Actor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Actor), args.Error(1)
}

func (m *MockCatalogRepository) ListItemKeys(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(job committer.Job) bool {
	return m.Called(job).Bool(0)
}

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

type MockForecaster struct {
	mock.Mock
}

func (m *MockForecaster) Predict(ctx context.Context, regionID string) *forecast.Forecast {
	return m.Called(ctx, regionID).Get(0).(*forecast.Forecast)
}
