package account

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation references an unknown account id.
var ErrNotFound = errors.New("account not found")

// ValidationError reports a malformed or incomplete account draft.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid account: %s %s", e.Field, e.Reason)
}

// PersistenceError wraps a failed backend read or write. In-memory state is
// never mutated before the backend call succeeds, so callers can retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("backend %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RefreshFailure reports a rejected or errored credential refresh.
// Permanent marks failures that re-trying cannot fix (revoked grant).
type RefreshFailure struct {
	AccountID string
	Permanent bool
	Err       error
}

func (e *RefreshFailure) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("refresh failed for %s (%s): %v", e.AccountID, kind, e.Err)
}

func (e *RefreshFailure) Unwrap() error { return e.Err }
