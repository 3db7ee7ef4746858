package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages audit trail persistence
type Repository interface {
	Create(ctx context.Context, entry *Entry) error

	// ListByShipment returns entries in creation order
	ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]*Entry, error)

	// SetProvisionalRef records the reference returned by the ledger at submission time
	SetProvisionalRef(ctx context.Context, id uuid.UUID, ref string) error

	// FinalizeLedgerRef moves a pending entry to ref. Entries that are no longer
	// pending are left untouched and ErrAlreadyFinalized is returned.
	FinalizeLedgerRef(ctx context.Context, id uuid.UUID, ref string) error

	// ListStalePending returns pending entries created before olderThan, oldest first
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*Pending, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrAlreadyFinalized indicates an attempt to rewrite a terminal ledger reference
type ErrAlreadyFinalized struct {
	EntryID uuid.UUID
}

func (e ErrAlreadyFinalized) Error() string {
	return "ledger reference already finalized: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrAlreadyFinalized
func (e ErrAlreadyFinalized) Is(target error) bool {
	t, ok := target.(ErrAlreadyFinalized)
	if !ok {
		return false
	}
	return t.EntryID == uuid.Nil || t.EntryID == e.EntryID
}
