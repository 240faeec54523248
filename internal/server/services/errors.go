package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing record, share or user.
	ErrNotFound = errors.New("not found")
	// ErrPermission reports an operation the actor may not perform.
	ErrPermission = errors.New("permission denied")
	// ErrConflict reports a write that lost to concurrent state.
	ErrConflict = errors.New("conflict")
	// ErrDuplicate reports a registration with a taken name.
	ErrDuplicate = errors.New("already registered")
	// ErrUnauthorized reports bad credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrExpiredToken reports a change token older than the pruning horizon.
	// The client must drop its cursor and refetch.
	ErrExpiredToken = errors.New("change token expired")
)

// PartialError rejects an atomic batch save. Failed maps record names (or
// indexes for unnamed records) to reasons; no record of the batch was saved.
type PartialError struct {
	Failed map[string]string
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("batch rejected: %d records failed", len(e.Failed))
}
