package shipment

import (
	"context"
	"fmt"

	"github.com/aidledger-audit/internal/domain/shared"
	"github.com/jackc/pgx/v5"
)

// Repository defines shipment persistence operations
type Repository interface {
	Create(ctx context.Context, s *Shipment) error
	GetByBarcode(ctx context.Context, barcode string) (*Shipment, error)

	// UpdateStatus persists Status, ConfirmedBy and UpdatedAt
	UpdateStatus(ctx context.Context, s *Shipment) error

	// LockByBarcode acquires a row lock for the duration of the surrounding transaction
	LockByBarcode(ctx context.Context, barcode string) (*Shipment, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrInvalidTransition indicates a move that the lifecycle does not allow
type ErrInvalidTransition struct {
	From Status
	To   Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// Is implements the errors.Is interface for ErrInvalidTransition
func (e ErrInvalidTransition) Is(target error) bool {
	if target == shared.ErrValidation {
		return true
	}
	_, ok := target.(ErrInvalidTransition)
	return ok
}

// ErrShipmentNotFound is returned for an unknown barcode or id
func ErrShipmentNotFound(key string) error {
	return shared.NotFoundError{Resource: "shipment", Key: key}
}

// ErrDuplicateBarcode is returned when a barcode is already registered
func ErrDuplicateBarcode(barcode string) error {
	return shared.ConflictError{Resource: "shipment", Key: barcode}
}
