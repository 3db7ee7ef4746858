package ledger

import (
	"context"
)

// Repository manages sealed ledger records
type Repository interface {
	// Insert stores a record; ErrDuplicateRecord is returned when the tx hash exists
	Insert(ctx context.Context, record *Record) error
	GetByTxHash(ctx context.Context, txHash string) (*Record, error)

	// ListBySubject returns records of one kind and state in block order
	ListBySubject(ctx context.Context, subject string, kind Kind, state RecordState) ([]*Record, error)

	// NextBlockNumber atomically allocates the next block height
	NextBlockNumber(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// ErrRecordNotFound indicates missing ledger record
type ErrRecordNotFound struct {
	TxHash string
}

func (e ErrRecordNotFound) Error() string {
	return "ledger record not found: " + e.TxHash
}

// Is implements the errors.Is interface for ErrRecordNotFound
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	// An empty TxHash matches any missing record
	if t.TxHash == "" {
		return true
	}
	return e.TxHash == t.TxHash
}

// ErrDuplicateRecord indicates a tx hash that was already sealed
type ErrDuplicateRecord struct {
	TxHash string
}

func (e ErrDuplicateRecord) Error() string {
	return "duplicate ledger record: " + e.TxHash
}

// Is implements the errors.Is interface for ErrDuplicateRecord
func (e ErrDuplicateRecord) Is(target error) bool {
	t, ok := target.(ErrDuplicateRecord)
	if !ok {
		return false
	}
	if t.TxHash == "" {
		return true
	}
	return e.TxHash == t.TxHash
}
