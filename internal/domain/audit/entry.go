package audit

import (
	"time"

	"github.com/google/uuid"
)

// Ledger reference values an entry can carry besides a confirmed transaction id
const (
	LedgerRefPending = "pending"
	LedgerRefFailed  = "failed"
)

// Entry is one row of a shipment's audit trail. Entries are append-only; only
// the ledger reference changes, once, from pending to a terminal value.
type Entry struct {
	ID             uuid.UUID `json:"id"`
	ShipmentID     uuid.UUID `json:"shipment_id"`
	Status         string    `json:"status"`
	LocationLabel  string    `json:"location"`
	LedgerRef      string    `json:"ledger_ref"`
	ProvisionalRef *string   `json:"provisional_ref,omitempty"`
	CreatedAt      time.Time `json:"timestamp"`
}

// NewEntry creates a pending audit entry
func NewEntry(shipmentID uuid.UUID, status, locationLabel string) *Entry {
	return &Entry{
		ID:            uuid.New(),
		ShipmentID:    shipmentID,
		Status:        status,
		LocationLabel: locationLabel,
		LedgerRef:     LedgerRefPending,
		CreatedAt:     time.Now().UTC(),
	}
}

// IsFinal reports whether the ledger reference has left the pending state
func (e *Entry) IsFinal() bool {
	return e.LedgerRef != LedgerRefPending
}

// Pending is an audit entry still awaiting its ledger outcome, joined with
// the barcode needed to resubmit it.
type Pending struct {
	Entry
	Barcode string
}
