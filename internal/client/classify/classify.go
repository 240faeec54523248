// Package classify maps remote-operation failures onto an outcome that
// decides what the caller does next: retry, alert the user, or just log. It
// is the single place making that decision; completion paths short-circuit
// on its verdict rather than interpreting raw errors.
package classify

import (
	"errors"

	"github.com/vterekhov/recordsync/internal/client/remote"
)

// Op identifies the kind of remote operation that produced an error.
type Op string

const (
	OpZoneCreate Op = "zone-create"
	OpSubscribe  Op = "subscribe"
	OpSave       Op = "save"
	OpFetch      Op = "fetch"
	OpDelete     Op = "delete"
	OpQuery      Op = "query"
	OpShare      Op = "share"
	OpChanges    Op = "changes"
)

// Outcome is the classifier's verdict.
type Outcome int

const (
	// OK: no error.
	OK Outcome = iota
	// Recoverable: transient; the caller may retry. Operations never
	// retry themselves.
	Recoverable
	// UserVisible: must surface a message (quota, conflict, permission).
	UserVisible
	// Ignorable: log only. Expired change tokens land here, with Resync
	// set so the engine re-fetches from scratch.
	Ignorable
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Recoverable:
		return "recoverable"
	case UserVisible:
		return "user-visible"
	default:
		return "ignorable"
	}
}

// Result carries the verdict plus the details callers act on.
type Result struct {
	Outcome Outcome
	Err     error

	// FailedNames lists the identities a batch operation failed for, when
	// the failure covered only a subset.
	FailedNames []string

	// Resync signals that the scope's change token is stale and must be
	// dropped before the next delta fetch.
	Resync bool
}

// Classify maps err, raised by an operation of kind op over the given record
// names, to an outcome.
func Classify(err error, op Op, names ...string) Result {
	if err == nil {
		return Result{Outcome: OK}
	}

	var partial *remote.PartialError
	if errors.As(err, &partial) {
		return Result{Outcome: Recoverable, Err: err, FailedNames: partial.FailedNames()}
	}

	switch {
	case errors.Is(err, remote.ErrExpiredToken):
		return Result{Outcome: Ignorable, Err: err, Resync: true}

	case errors.Is(err, remote.ErrTimeout),
		errors.Is(err, remote.ErrUnavailable),
		errors.Is(err, remote.ErrZoneBusy):
		return Result{Outcome: Recoverable, Err: err, FailedNames: names}

	case errors.Is(err, remote.ErrQuota),
		errors.Is(err, remote.ErrConflict),
		errors.Is(err, remote.ErrPermission),
		errors.Is(err, remote.ErrUnauthorized):
		return Result{Outcome: UserVisible, Err: err, FailedNames: names}

	case errors.Is(err, remote.ErrNotFound):
		// Usually a stale notification racing a deletion.
		return Result{Outcome: Ignorable, Err: err}
	}

	switch op {
	case OpSave, OpDelete, OpShare:
		return Result{Outcome: UserVisible, Err: err, FailedNames: names}
	default:
		return Result{Outcome: Ignorable, Err: err}
	}
}
