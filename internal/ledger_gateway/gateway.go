// Package gateway is the client side of the ledger: it submits shipment logs
// and prediction hashes, reads back shipment histories and checks whether a
// submitted transaction was sealed.
package gateway

import (
	"context"

	"github.com/aidledger-audit/internal/domain/ledger"
)

// Gateway is the capability handed to services that talk to the ledger. A
// gateway that could not be initialized is still a Gateway: every call on it
// fails with ledger.ErrUnavailable.
type Gateway interface {
	// Append submits a write and returns the provisional transaction hash
	// without waiting for the ledger to seal it
	Append(ctx context.Context, subject string, kind ledger.Kind, payload ledger.Payload) (string, error)

	// Query returns the confirmed shipment log of subject in ledger order,
	// or an empty slice
	Query(ctx context.Context, subject string) ([]ledger.LogEntry, error)

	// Confirmation reports the receipt of a sealed transaction. It returns
	// ledger.ErrNotConfirmed while the transaction is pending and
	// ledger.ErrRejected when the ledger refused it.
	Confirmation(ctx context.Context, txRef string) (*ledger.Receipt, error)

	Available() bool
	Close(ctx context.Context) error
}

type unavailableGateway struct{}

// Unavailable returns the gateway used when the ledger could not be reached
// at startup
func Unavailable() Gateway {
	return unavailableGateway{}
}

func (unavailableGateway) Append(context.Context, string, ledger.Kind, ledger.Payload) (string, error) {
	return "", ledger.ErrUnavailable
}

func (unavailableGateway) Query(context.Context, string) ([]ledger.LogEntry, error) {
	return nil, ledger.ErrUnavailable
}

func (unavailableGateway) Confirmation(context.Context, string) (*ledger.Receipt, error) {
	return nil, ledger.ErrUnavailable
}

func (unavailableGateway) Available() bool { return false }

func (unavailableGateway) Close(context.Context) error { return nil }
