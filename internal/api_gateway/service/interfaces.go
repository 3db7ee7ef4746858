package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/aidledger-audit/internal/domain/audit"
	"github.com/aidledger-audit/internal/domain/prediction"
	"github.com/aidledger-audit/internal/domain/reconciliation"
	"github.com/aidledger-audit/internal/domain/shipment"
	"github.com/aidledger-audit/internal/platform/forecast"
)

// ShipmentService drives shipments through their lifecycle. Every accepted
// change is written to the database together with an audit entry before the
// call returns; the ledger commit happens in the background.
type ShipmentService interface {
	// Register creates a shipment in Registered and records its first audit entry.
	// Returns a ConflictError for a duplicate barcode and a NotFoundError for an
	// unknown location or prediction.
	Register(ctx context.Context, req RegisterShipmentRequest) (*shipment.Shipment, error)

	// Transition moves a shipment to target.
	// Returns shipment.ErrInvalidTransition when target does not follow the current status.
	Transition(ctx context.Context, barcode, target string) (*shipment.Shipment, error)

	// ConfirmDelivery marks an arrived shipment delivered and scores the linked
	// prediction against the delivered quantities
	ConfirmDelivery(ctx context.Context, barcode string, actorID uuid.UUID, actual map[string]float64) (*shipment.Shipment, error)

	GetShipment(ctx context.Context, barcode string) (*shipment.Shipment, error)

	// AuditLog returns the shipment's audit entries in creation order
	AuditLog(ctx context.Context, barcode string) ([]*audit.Entry, error)
}

// ReconciliationService compares a subject's ledger history with its database history
type ReconciliationService interface {
	// Reconcile returns ledger.ErrUnavailable when the ledger cannot be read
	Reconcile(ctx context.Context, barcode string) (*reconciliation.Verdict, error)
}

// PredictionService creates demand forecasts and reports their accuracy
type PredictionService interface {
	// CreatePrediction fetches a forecast for regionID, falling back to a fixed
	// forecast when the forecasting service fails, and commits its hash
	CreatePrediction(ctx context.Context, regionID string) (*prediction.Prediction, error)

	GetPrediction(ctx context.Context, id uuid.UUID) (*prediction.Prediction, error)

	// DashboardAccuracy scores every prediction that has delivered quantities
	DashboardAccuracy(ctx context.Context) (*AccuracySummary, error)
}

// Forecaster supplies demand forecasts. It always answers, marking fallbacks.
type Forecaster interface {
	Predict(ctx context.Context, regionID string) *forecast.Forecast
}

// RegisterShipmentRequest carries the fields of a new shipment
type RegisterShipmentRequest struct {
	Barcode               string
	SourceLocationID      uuid.UUID
	DestinationLocationID uuid.UUID
	PredictionID          *uuid.UUID
}

// PredictionAccuracy is one row of the accuracy dashboard
type PredictionAccuracy struct {
	ID       uuid.UUID `json:"id"`
	RegionID string    `json:"region_id"`
	Accuracy float64   `json:"accuracy"`
}

// AccuracySummary is the accuracy dashboard
type AccuracySummary struct {
	Overall     float64              `json:"overall"`
	Evaluated   int                  `json:"evaluated"`
	Predictions []PredictionAccuracy `json:"predictions"`
}
