package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/vterekhov/recordsync/internal/client/classify"
)

// withRetry runs fn, retrying only failures the classifier deems
// recoverable. Core operations never retry themselves; this is the one layer
// that does.
func (a *App) withRetry(ctx context.Context, op classify.Op, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		res := classify.Classify(err, op)
		switch res.Outcome {
		case classify.Recoverable:
			return retry.RetryableError(err)
		case classify.Ignorable:
			a.logger.Debug(ctx, "ignoring failure", "op", string(op), "error", err)
			return nil
		default:
			return err
		}
	})
}

// report prints a failure the way the classifier says it should surface.
func (a *App) report(err error, op classify.Op) {
	if err == nil {
		return
	}
	res := classify.Classify(err, op)
	switch res.Outcome {
	case classify.UserVisible:
		fmt.Println("Error:", err)
		if len(res.FailedNames) > 0 {
			fmt.Println("Failed records:", res.FailedNames)
		}
	case classify.OK, classify.Ignorable:
	default:
		fmt.Println("Temporarily unavailable, try again:", err)
	}
}
