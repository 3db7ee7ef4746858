package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aidledger-audit/internal/domain/audit"
	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/domain/reconciliation"
	"github.com/aidledger-audit/internal/domain/shipment"
	"github.com/aidledger-audit/internal/platform/metrics"
)

func auditTrail(shipmentID uuid.UUID, statuses ...string) []*audit.Entry {
	entries := make([]*audit.Entry, 0, len(statuses))
	for _, s := range statuses {
		entries = append(entries, audit.NewEntry(shipmentID, s, "Gaziantep Hub"))
	}
	return entries
}

func ledgerLog(statuses ...string) []ledger.LogEntry {
	log := make([]ledger.LogEntry, 0, len(statuses))
	for i, s := range statuses {
		log = append(log, ledger.LogEntry{Status: s, Timestamp: int64(1700000000 + i), Location: "Gaziantep Hub"})
	}
	return log
}

func TestReconciliationService_Reconcile(t *testing.T) {
	ctx := context.Background()
	known := shipmentIn(shipment.StatusDeparted)

	tests := []struct {
		name       string
		ledger     []ledger.LogEntry
		shipment   *shipment.Shipment
		dbStatuses []string
		want       reconciliation.Status
		wantDB     int
	}{
		{"Match", ledgerLog("Registered", "Departed"), known, []string{"Registered", "Departed"}, reconciliation.StatusMatch, 2},
		{"Partial", ledgerLog("Registered"), known, []string{"Registered", "Departed"}, reconciliation.StatusPartial, 2},
		{"Mismatch", ledgerLog("Registered", "Cancelled"), known, []string{"Registered", "Departed"}, reconciliation.StatusMismatch, 2},
		{"NoBlockchainRecords", ledgerLog(), known, []string{"Registered"}, reconciliation.StatusNoBlockchainRecords, 1},
		{"NoDBRecords", ledgerLog("Registered"), nil, nil, reconciliation.StatusNoDBRecords, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(MockGateway)
			shipments := new(MockShipmentRepository)
			audits := new(MockAuditRepository)
			m := metrics.New(prometheus.NewRegistry())
			svc := NewReconciliationService(newTestLogger(), gw, shipments, audits, m)

			gw.On("Query", ctx, "AID-0042").Return(tt.ledger, nil)
			if tt.shipment == nil {
				shipments.On("GetByBarcode", ctx, "AID-0042").Return(nil, shipment.ErrShipmentNotFound("AID-0042"))
			} else {
				shipments.On("GetByBarcode", ctx, "AID-0042").Return(tt.shipment, nil)
				audits.On("ListByShipment", ctx, tt.shipment.ID).Return(auditTrail(tt.shipment.ID, tt.dbStatuses...), nil)
			}

			v, err := svc.Reconcile(ctx, "AID-0042")

			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Status)
			assert.Equal(t, len(tt.ledger), v.LedgerCount)
			assert.Equal(t, tt.wantDB, v.DBCount)
			assert.Equal(t, tt.ledger, v.LedgerHistory)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.ReconcileVerdicts.WithLabelValues(string(tt.want))))
		})
	}
}

func TestReconciliationService_LedgerFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
	}{
		{"GatewayNeverInitialized", ledger.ErrUnavailable},
		{"QueryFailed", errors.New("mongo: server selection timeout")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(MockGateway)
			shipments := new(MockShipmentRepository)
			svc := NewReconciliationService(newTestLogger(), gw, shipments, new(MockAuditRepository), nil)

			gw.On("Query", ctx, "AID-0042").Return(nil, tt.err)

			v, err := svc.Reconcile(ctx, "AID-0042")

			assert.Nil(t, v)
			assert.ErrorIs(t, err, ledger.ErrUnavailable)
			shipments.AssertNotCalled(t, "GetByBarcode", mock.Anything, mock.Anything)
		})
	}
}

func TestReconciliationService_DatabaseError(t *testing.T) {
	ctx := context.Background()
	gw := new(MockGateway)
	shipments := new(MockShipmentRepository)
	svc := NewReconciliationService(newTestLogger(), gw, shipments, new(MockAuditRepository), nil)
	dbErr := errors.New("connection refused")

	gw.On("Query", ctx, "AID-0042").Return(ledgerLog("Registered"), nil)
	shipments.On("GetByBarcode", ctx, "AID-0042").Return(nil, dbErr)

	_, err := svc.Reconcile(ctx, "AID-0042")

	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ledger.ErrUnavailable)
}
