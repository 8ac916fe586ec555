package store

import (
	"errors"
)

var (
	// ErrNoStock is the expected, non-fatal outcome of a claim against
	// an empty pool. Never conflated with infrastructure failure.
	ErrNoStock = errors.New("no credential stock available")

	// ErrStoreUnavailable wraps transient infrastructure failures and
	// triggers the local fallback path for writes.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidTransition is returned when a caller tries to move a
	// stock issue or subscription out of a terminal state. Treated as
	// a warned no-op, never a crash.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrDuplicateAllocation signals two credentials bound to one
	// order. A data-integrity bug to surface loudly, never repaired
	// silently.
	ErrDuplicateAllocation = errors.New("duplicate credential allocation")
)
