// Package logging defines the structured-logging interface shared by the sync
// core and the server. Components receive a Logger explicitly; there is no
// package-level default.
package logging

import "context"

// Logger is a context-aware, structured logger. Variadic args are key-value
// pairs:
//
//	log.Info(ctx, "zone created", "zone", name, "scope", scope)
type Logger interface {
	// Debug logs fine-grained sync progress (token advances, page counts).
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs unusual but non-fatal conditions (unknown record types,
	// ignorable classified outcomes).
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
