package prediction

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aidledger-audit/internal/domain/shared"
	"github.com/google/uuid"
)

// Source records where the predicted quantities came from
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Ledger reference values shared with the audit trail
const (
	LedgerRefPending = "pending"
	LedgerRefFailed  = "failed"
)

// Prediction is a regional demand forecast and, once a linked shipment is
// delivered, its measured accuracy.
type Prediction struct {
	ID          uuid.UUID          `json:"id"`
	RegionID    string             `json:"region_id"`
	Predicted   map[string]float64 `json:"predicted_quantities"`
	Confidence  float64            `json:"confidence"`
	ContentHash string             `json:"content_hash"`
	SourceHash  string             `json:"source_hash,omitempty"`
	Source      Source             `json:"source"`
	Actual      map[string]float64 `json:"actual_quantities,omitempty"`
	Accuracy    *float64           `json:"accuracy,omitempty"`
	LedgerRef   *string            `json:"ledger_ref,omitempty"`
	ShipmentID  *uuid.UUID         `json:"shipment_id,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// NewPrediction validates and builds a prediction awaiting its ledger commit
func NewPrediction(regionID string, predicted map[string]float64, confidence float64, contentHash, sourceHash string, source Source) (*Prediction, error) {
	regionID = strings.TrimSpace(regionID)
	if regionID == "" {
		return nil, shared.ValidationError{Field: "region_id", Reason: "must not be empty"}
	}
	if confidence < 0 || confidence > 1 || math.IsNaN(confidence) {
		return nil, shared.ValidationError{Field: "confidence", Reason: "must be within [0,1]"}
	}
	for k, v := range predicted {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, shared.ValidationError{Field: "predictions", Reason: fmt.Sprintf("quantity for %q must be a non-negative number", k)}
		}
	}

	pending := LedgerRefPending
	return &Prediction{
		ID:          uuid.New(),
		RegionID:    regionID,
		Predicted:   predicted,
		Confidence:  confidence,
		ContentHash: contentHash,
		SourceHash:  sourceHash,
		Source:      source,
		LedgerRef:   &pending,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// RecordActuals stores delivered quantities together with the accuracy they imply
func (p *Prediction) RecordActuals(actual map[string]float64, accuracy float64, shipmentID uuid.UUID) {
	p.Actual = actual
	p.Accuracy = &accuracy
	p.ShipmentID = &shipmentID
}

// HasActuals reports whether delivered quantities were recorded
func (p *Prediction) HasActuals() bool {
	return p.Actual != nil
}
