package ledger

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned by every operation of a gateway that was never
// initialized. Callers keep running on the database alone.
var ErrUnavailable = errors.New("ledger unavailable")

// ErrNotConfirmed means the transaction has not been sealed yet
var ErrNotConfirmed = errors.New("ledger transaction not confirmed yet")

// ConnectivityError reports why the gateway could not be initialized
type ConnectivityError struct {
	Reason string
	Err    error
}

func (e ConnectivityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ledger connectivity: %s: %v", e.Reason, e.Err)
	}
	return "ledger connectivity: " + e.Reason
}

func (e ConnectivityError) Unwrap() error { return e.Err }

// Is implements the errors.Is interface for ConnectivityError
func (e ConnectivityError) Is(target error) bool {
	if target == ErrUnavailable {
		return true
	}
	_, ok := target.(ConnectivityError)
	return ok
}

// TransientOpError wraps a failed ledger operation that may succeed on retry
type TransientOpError struct {
	Op  string
	Err error
}

func (e TransientOpError) Error() string {
	return fmt.Sprintf("ledger %s failed: %v", e.Op, e.Err)
}

func (e TransientOpError) Unwrap() error { return e.Err }

// TerminalOpError is the final failure of an operation after every retry was spent
type TerminalOpError struct {
	Attempts int
	Err      error
}

func (e TerminalOpError) Error() string {
	return fmt.Sprintf("ledger operation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e TerminalOpError) Unwrap() error { return e.Err }

// ErrRejected means the ledger sealed the transaction as rejected
type ErrRejected struct {
	TxHash string
	Reason string
}

func (e ErrRejected) Error() string {
	return fmt.Sprintf("ledger rejected transaction %s: %s", e.TxHash, e.Reason)
}

// Is implements the errors.Is interface for ErrRejected
func (e ErrRejected) Is(target error) bool {
	t, ok := target.(ErrRejected)
	if !ok {
		return false
	}
	return t.TxHash == "" || t.TxHash == e.TxHash
}
