// Package repository contains the sqlx-backed persistence layer. Every
// multi-statement lifecycle transition runs in a single transaction, and
// bounded counters are only moved through conditional updates so concurrent
// callers cannot overshoot a capacity.
package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced by conditional updates. Services translate these
// into the typed API errors.
var (
	// ErrCapacityReached reports that a bounded counter is saturated.
	ErrCapacityReached = errors.New("capacity reached")
	// ErrStateConflict reports that a status-guarded update matched no row,
	// i.e. the record left the expected state before this call.
	ErrStateConflict = errors.New("state conflict")
	// ErrDuplicate reports a uniqueness violation.
	ErrDuplicate = errors.New("duplicate record")
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
