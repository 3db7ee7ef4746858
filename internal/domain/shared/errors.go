package shared

import (
	"errors"
	"fmt"
)

// Error categories. Concrete errors below match these through errors.Is so
// callers (HTTP handlers, background tasks) can branch on the category alone.
var (
	ErrValidation    = errors.New("validation error")
	ErrAuthorization = errors.New("authorization error")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
)

// ValidationError indicates a request that can never succeed as submitted
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// Is implements the errors.Is interface for ValidationError
func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// AuthorizationError indicates the acting user may not perform the operation
type AuthorizationError struct {
	ActorID string
	Reason  string
}

func (e AuthorizationError) Error() string {
	return fmt.Sprintf("actor %q not authorized: %s", e.ActorID, e.Reason)
}

// Is implements the errors.Is interface for AuthorizationError
func (e AuthorizationError) Is(target error) bool {
	return target == ErrAuthorization
}

// NotFoundError indicates an unknown subject, prediction or catalog entry
type NotFoundError struct {
	Resource string
	Key      string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// Is implements the errors.Is interface for NotFoundError
func (e NotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	t, ok := target.(NotFoundError)
	if !ok {
		return false
	}
	// An empty Key matches any missing resource of the same kind
	return t.Resource == e.Resource && (t.Key == "" || t.Key == e.Key)
}

// ConflictError indicates a uniqueness violation
type ConflictError struct {
	Resource string
	Key      string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.Key)
}

// Is implements the errors.Is interface for ConflictError
func (e ConflictError) Is(target error) bool {
	return target == ErrConflict
}
