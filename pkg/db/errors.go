// Package db defines the record models, store interfaces and error
// sentinels shared between the postgres implementation and the core
// services. The sentinels let callers distinguish failure kinds: not-found
// aborts the single operation, conflict aborts only the conflicting
// sub-operation within a batch.
package db

import "errors"

// ErrNotFound is returned when a lookup by ID matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a conditional write loses: a work area at
// capacity, a duplicate active time record, or an assignment that already
// exists. The write is rejected, never merged.
var ErrConflict = errors.New("conflict")

// ErrInvalidTransition is returned when an event status update would move
// the lifecycle backwards or skip validation.
var ErrInvalidTransition = errors.New("invalid status transition")
