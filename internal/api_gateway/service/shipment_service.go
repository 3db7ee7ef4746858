package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aidledger-audit/internal/accuracy"
	"github.com/aidledger-audit/internal/domain/audit"
	"github.com/aidledger-audit/internal/domain/catalog"
	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/domain/prediction"
	"github.com/aidledger-audit/internal/domain/shared"
	"github.com/aidledger-audit/internal/domain/shipment"
	committer "github.com/aidledger-audit/internal/ledger_committer"
	"github.com/aidledger-audit/internal/platform/persistence"
)

// ShipmentServiceImpl implements the ShipmentService interface
type ShipmentServiceImpl struct {
	db          persistence.TxRunner
	shipments   shipment.Repository
	audits      audit.Repository
	predictions prediction.Repository
	catalog     catalog.Repository
	committer   committer.Enqueuer
	logger      *slog.Logger
}

// NewShipmentService creates a new shipment service
func NewShipmentService(
	logger *slog.Logger,
	db persistence.TxRunner,
	shipments shipment.Repository,
	audits audit.Repository,
	predictions prediction.Repository,
	catalogRepo catalog.Repository,
	enqueuer committer.Enqueuer,
) ShipmentService {
	return &ShipmentServiceImpl{
		db:          db,
		shipments:   shipments,
		audits:      audits,
		predictions: predictions,
		catalog:     catalogRepo,
		committer:   enqueuer,
		logger:      logger,
	}
}

func (s *ShipmentServiceImpl) Register(ctx context.Context, req RegisterShipmentRequest) (*shipment.Shipment, error) {
	sh, err := shipment.NewShipment(req.Barcode, req.SourceLocationID, req.DestinationLocationID, req.PredictionID)
	if err != nil {
		return nil, err
	}

	source, err := s.catalog.GetLocation(ctx, sh.SourceLocationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetLocation(ctx, sh.DestinationLocationID); err != nil {
		return nil, err
	}
	if sh.PredictionID != nil {
		if _, err := s.predictions.GetByID(ctx, *sh.PredictionID); err != nil {
			return nil, err
		}
	}

	entry := audit.NewEntry(sh.ID, string(sh.Status), source.Name)
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.shipments.WithTx(tx).Create(ctx, sh); err != nil {
			return err
		}
		return s.audits.WithTx(tx).Create(ctx, entry)
	})
	if err != nil {
		s.logger.Error("Failed to register shipment", "barcode", sh.Barcode, "error", err)
		return nil, err
	}

	s.logger.Info("Shipment registered", "barcode", sh.Barcode, "shipment_id", sh.ID.String())
	s.commit(sh.Barcode, entry)
	return sh, nil
}

func (s *ShipmentServiceImpl) Transition(ctx context.Context, barcode, target string) (*shipment.Shipment, error) {
	status, err := shipment.ParseStatus(target)
	if err != nil {
		return nil, err
	}

	var (
		sh    *shipment.Shipment
		entry *audit.Entry
	)
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		sh, err = s.shipments.WithTx(tx).LockByBarcode(ctx, barcode)
		if err != nil {
			return err
		}

		previous := sh.Status
		if err := sh.TransitionTo(status); err != nil {
			return err
		}

		label, err := s.locationLabel(ctx, sh.LedgerLocationID(previous))
		if err != nil {
			return err
		}

		if err := s.shipments.WithTx(tx).UpdateStatus(ctx, sh); err != nil {
			return err
		}
		entry = audit.NewEntry(sh.ID, string(sh.Status), label)
		return s.audits.WithTx(tx).Create(ctx, entry)
	})
	if err != nil {
		s.logger.Warn("Shipment transition rejected", "barcode", barcode, "target", target, "error", err)
		return nil, err
	}

	s.logger.Info("Shipment transitioned", "barcode", barcode, "status", sh.Status, "audit_entry_id", entry.ID.String())
	s.commit(sh.Barcode, entry)
	return sh, nil
}

// ConfirmDelivery checks, in order, the shipment status, the actor's
// authority over the destination and the delivered quantities
func (s *ShipmentServiceImpl) ConfirmDelivery(ctx context.Context, barcode string, actorID uuid.UUID, actual map[string]float64) (*shipment.Shipment, error) {
	var (
		sh    *shipment.Shipment
		entry *audit.Entry
	)
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		sh, err = s.shipments.WithTx(tx).LockByBarcode(ctx, barcode)
		if err != nil {
			return err
		}
		if sh.Status != shipment.StatusArrived {
			return shipment.ErrInvalidTransition{From: sh.Status, To: shipment.StatusDelivered}
		}

		if err := s.authorizeDelivery(ctx, actorID, sh.DestinationLocationID); err != nil {
			return err
		}

		quantities, err := s.normalizeQuantities(ctx, actual)
		if err != nil {
			return err
		}

		label, err := s.locationLabel(ctx, sh.DestinationLocationID)
		if err != nil {
			return err
		}

		if err := sh.ConfirmDelivery(actorID); err != nil {
			return err
		}
		if err := s.shipments.WithTx(tx).UpdateStatus(ctx, sh); err != nil {
			return err
		}

		if sh.PredictionID != nil {
			if err := s.scorePrediction(ctx, tx, *sh.PredictionID, sh.ID, quantities); err != nil {
				return err
			}
		}

		entry = audit.NewEntry(sh.ID, string(sh.Status), label)
		return s.audits.WithTx(tx).Create(ctx, entry)
	})
	if err != nil {
		s.logger.Warn("Delivery confirmation rejected",
			"barcode", barcode,
			"actor_id", actorID.String(),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Delivery confirmed",
		"barcode", barcode,
		"actor_id", actorID.String(),
		"audit_entry_id", entry.ID.String(),
	)
	s.commit(sh.Barcode, entry)
	return sh, nil
}

func (s *ShipmentServiceImpl) GetShipment(ctx context.Context, barcode string) (*shipment.Shipment, error) {
	return s.shipments.GetByBarcode(ctx, barcode)
}

func (s *ShipmentServiceImpl) AuditLog(ctx context.Context, barcode string) ([]*audit.Entry, error) {
	sh, err := s.shipments.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	return s.audits.ListByShipment(ctx, sh.ID)
}

func (s *ShipmentServiceImpl) authorizeDelivery(ctx context.Context, actorID, destination uuid.UUID) error {
	actor, err := s.catalog.GetActor(ctx, actorID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.AuthorizationError{ActorID: actorID.String(), Reason: "unknown actor"}
		}
		return err
	}
	if !actor.CanConfirmAt(destination) {
		return shared.AuthorizationError{ActorID: actorID.String(), Reason: "not assigned to the destination location"}
	}
	return nil
}

// normalizeQuantities validates delivered quantities against the item catalog
// and folds keys to lower case. Keys differing only in case are summed.
func (s *ShipmentServiceImpl) normalizeQuantities(ctx context.Context, actual map[string]float64) (map[string]float64, error) {
	keys, err := s.catalog.ListItemKeys(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		known[k] = struct{}{}
	}

	folded := make(map[string]float64, len(actual))
	for key, qty := range actual {
		lower := strings.ToLower(strings.TrimSpace(key))
		if _, ok := known[lower]; !ok {
			return nil, shared.ValidationError{Field: "actual_quantities", Reason: fmt.Sprintf("unknown item %q", key)}
		}
		if qty < 0 || math.IsInf(qty, 0) || math.IsNaN(qty) || qty != math.Trunc(qty) {
			return nil, shared.ValidationError{Field: "actual_quantities", Reason: fmt.Sprintf("quantity for %q must be a non-negative integer", key)}
		}
		folded[lower] += qty
	}
	return folded, nil
}

func (s *ShipmentServiceImpl) scorePrediction(ctx context.Context, tx pgx.Tx, predictionID, shipmentID uuid.UUID, actual map[string]float64) error {
	repo := s.predictions.WithTx(tx)
	p, err := repo.GetByID(ctx, predictionID)
	if err != nil {
		return err
	}

	result := accuracy.Delivery(p.Predicted, actual)
	p.RecordActuals(actual, result.Accuracy, shipmentID)
	if err := repo.UpdateActuals(ctx, p); err != nil {
		return err
	}

	s.logger.Info("Prediction scored against delivery",
		"prediction_id", predictionID.String(),
		"accuracy", result.Accuracy,
		"items", result.Evaluated,
	)
	return nil
}

func (s *ShipmentServiceImpl) locationLabel(ctx context.Context, id uuid.UUID) (string, error) {
	loc, err := s.catalog.GetLocation(ctx, id)
	if err != nil {
		return "", err
	}
	return loc.Name, nil
}

// commit schedules the ledger write of entry. A dropped job leaves the entry
// pending for the sweeper.
func (s *ShipmentServiceImpl) commit(barcode string, entry *audit.Entry) {
	s.committer.Enqueue(committer.Job{
		Kind:    ledger.KindShipmentLog,
		Subject: barcode,
		Payload: ledger.ShipmentLog(entry.Status, entry.LocationLabel),
		RefID:   entry.ID,
	})
}
