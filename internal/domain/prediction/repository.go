package prediction

import (
	"context"
	"time"

	"github.com/aidledger-audit/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages prediction persistence
type Repository interface {
	Create(ctx context.Context, p *Prediction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prediction, error)

	// UpdateActuals persists Actual, Accuracy and ShipmentID
	UpdateActuals(ctx context.Context, p *Prediction) error
	ListWithActuals(ctx context.Context) ([]*Prediction, error)

	SetProvisionalRef(ctx context.Context, id uuid.UUID, ref string) error
	FinalizeLedgerRef(ctx context.Context, id uuid.UUID, ref string) error
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*Pending, error)
	WithTx(tx pgx.Tx) Repository
}

// Pending is a prediction whose hash commitment has no ledger outcome yet
type Pending struct {
	ID             uuid.UUID
	RegionID       string
	ContentHash    string
	ProvisionalRef *string
	CreatedAt      time.Time
}

// ErrPredictionNotFound is returned for an unknown prediction id
func ErrPredictionNotFound(id uuid.UUID) error {
	return shared.NotFoundError{Resource: "prediction", Key: id.String()}
}

// ErrAlreadyFinalized indicates an attempt to rewrite a terminal ledger reference
type ErrAlreadyFinalized struct {
	PredictionID uuid.UUID
}

func (e ErrAlreadyFinalized) Error() string {
	return "prediction ledger reference already finalized: " + e.PredictionID.String()
}

// Is implements the errors.Is interface for ErrAlreadyFinalized
func (e ErrAlreadyFinalized) Is(target error) bool {
	t, ok := target.(ErrAlreadyFinalized)
	if !ok {
		return false
	}
	return t.PredictionID == uuid.Nil || t.PredictionID == e.PredictionID
}
