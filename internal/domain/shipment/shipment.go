package shipment

import (
	"fmt"
	"strings"
	"time"

	"github.com/aidledger-audit/internal/domain/shared"
	"github.com/google/uuid"
)

// Status is a lifecycle state of a shipment
type Status string

const (
	StatusCreated    Status = "Created"
	StatusRegistered Status = "Registered"
	StatusDeparted   Status = "Departed"
	StatusArrived    Status = "Arrived"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

var allStatuses = []Status{
	StatusCreated,
	StatusRegistered,
	StatusDeparted,
	StatusArrived,
	StatusDelivered,
	StatusCancelled,
}

// predecessors lists, for every reachable target, the statuses it may be entered from.
// Created and Registered are entry states only and never appear as targets.
var predecessors = map[Status][]Status{
	StatusDeparted:  {StatusCreated, StatusRegistered},
	StatusArrived:   {StatusDeparted},
	StatusDelivered: {StatusArrived},
	StatusCancelled: {StatusCreated, StatusRegistered, StatusDeparted, StatusArrived},
}

// ParseStatus matches a status label case-insensitively
func ParseStatus(label string) (Status, error) {
	for _, s := range allStatuses {
		if strings.EqualFold(string(s), strings.TrimSpace(label)) {
			return s, nil
		}
	}
	return "", shared.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", label)}
}

// CanTransition reports whether a shipment in status from may move to status to
func CanTransition(from, to Status) bool {
	for _, p := range predecessors[to] {
		if p == from {
			return true
		}
	}
	return false
}

// Shipment is the system-of-record view of a physical aid shipment
type Shipment struct {
	ID                    uuid.UUID  `json:"id"`
	Barcode               string     `json:"barcode"`
	Status                Status     `json:"status"`
	SourceLocationID      uuid.UUID  `json:"source_location_id"`
	DestinationLocationID uuid.UUID  `json:"destination_location_id"`
	PredictionID          *uuid.UUID `json:"prediction_id,omitempty"`
	ConfirmedBy           *uuid.UUID `json:"confirmed_by,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// NewShipment creates a shipment in the Registered entry state
func NewShipment(barcode string, source, destination uuid.UUID, predictionID *uuid.UUID) (*Shipment, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, shared.ValidationError{Field: "barcode", Reason: "must not be empty"}
	}
	if source == uuid.Nil || destination == uuid.Nil {
		return nil, shared.ValidationError{Field: "location", Reason: "source and destination are required"}
	}
	if source == destination {
		return nil, shared.ValidationError{Field: "location", Reason: "source and destination must differ"}
	}

	now := time.Now().UTC()
	return &Shipment{
		ID:                    uuid.New(),
		Barcode:               barcode,
		Status:                StatusRegistered,
		SourceLocationID:      source,
		DestinationLocationID: destination,
		PredictionID:          predictionID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// TransitionTo moves the shipment to target, returning ErrInvalidTransition if
// the current status is not an allowed predecessor.
func (s *Shipment) TransitionTo(target Status) error {
	if !CanTransition(s.Status, target) {
		return ErrInvalidTransition{From: s.Status, To: target}
	}
	s.Status = target
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// ConfirmDelivery moves an arrived shipment to Delivered and records who confirmed it
func (s *Shipment) ConfirmDelivery(actorID uuid.UUID) error {
	if err := s.TransitionTo(StatusDelivered); err != nil {
		return err
	}
	s.ConfirmedBy = &actorID
	return nil
}

// LedgerLocationID picks the location reported to the ledger for a move from
// previous into the shipment's current status.
func (s *Shipment) LedgerLocationID(previous Status) uuid.UUID {
	switch s.Status {
	case StatusArrived, StatusDelivered:
		return s.DestinationLocationID
	case StatusCancelled:
		if previous == StatusArrived {
			return s.DestinationLocationID
		}
		return s.SourceLocationID
	default:
		return s.SourceLocationID
	}
}
