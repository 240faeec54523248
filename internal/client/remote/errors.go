package remote

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for remote-operation failures. Callers match them with
// errors.Is; the classifier turns them into outcomes.
var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("version conflict")
	ErrPermission   = errors.New("permission denied")
	ErrQuota        = errors.New("storage quota exceeded")
	ErrExpiredToken = errors.New("change token expired")
	ErrZoneBusy     = errors.New("zone busy")
	ErrTimeout      = errors.New("operation timed out")
)

// PartialError reports a batch operation that failed for a subset of record
// names. Records absent from Failed were applied.
type PartialError struct {
	Failed map[string]string
}

func (e *PartialError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for name := range e.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("partial failure: %s", strings.Join(names, ", "))
}

// FailedNames returns the affected record names in stable order.
func (e *PartialError) FailedNames() []string {
	names := make([]string, 0, len(e.Failed))
	for name := range e.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
