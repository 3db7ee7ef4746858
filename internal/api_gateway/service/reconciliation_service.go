package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aidledger-audit/internal/domain/audit"
	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/domain/reconciliation"
	"github.com/aidledger-audit/internal/domain/shared"
	"github.com/aidledger-audit/internal/domain/shipment"
	gateway "github.com/aidledger-audit/internal/ledger_gateway"
	"github.com/aidledger-audit/internal/platform/metrics"
)

// ReconciliationServiceImpl implements the ReconciliationService interface
type ReconciliationServiceImpl struct {
	gateway   gateway.Gateway
	shipments shipment.Repository
	audits    audit.Repository
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(logger *slog.Logger, gw gateway.Gateway, shipments shipment.Repository, audits audit.Repository, m *metrics.Metrics) ReconciliationService {
	return &ReconciliationServiceImpl{
		gateway:   gw,
		shipments: shipments,
		audits:    audits,
		logger:    logger,
		metrics:   m,
	}
}

func (s *ReconciliationServiceImpl) Reconcile(ctx context.Context, barcode string) (*reconciliation.Verdict, error) {
	history, err := s.gateway.Query(ctx, barcode)
	if err != nil {
		s.logger.Error("Failed to read ledger history", "barcode", barcode, "error", err)
		if errors.Is(err, ledger.ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ledger.ErrUnavailable, err)
	}

	exists := true
	var statuses []string
	sh, err := s.shipments.GetByBarcode(ctx, barcode)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		exists = false
	case err != nil:
		return nil, err
	default:
		entries, err := s.audits.ListByShipment(ctx, sh.ID)
		if err != nil {
			return nil, err
		}
		statuses = make([]string, 0, len(entries))
		for _, e := range entries {
			statuses = append(statuses, e.Status)
		}
	}

	verdict := reconciliation.Classify(history, exists, statuses)
	s.metrics.ObserveVerdict(string(verdict.Status))

	s.logger.Info("Subject reconciled",
		"barcode", barcode,
		"status", verdict.Status,
		"ledger_count", verdict.LedgerCount,
		"db_count", verdict.DBCount,
	)
	return &verdict, nil
}
