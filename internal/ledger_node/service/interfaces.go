package service

import (
	"context"

	"github.com/aidledger-audit/internal/domain/ledger"
)

// SealingService turns a ledger submission into a stored record.
type SealingService interface {
	// Seal stores the submission as a confirmed record. A submission that
	// fails validation is stored as rejected and a shared.ValidationError is
	// returned. Sealing the same tx hash twice returns the stored record.
	Seal(ctx context.Context, submission *ledger.Submission) (*ledger.Record, error)
}
