package cursors

import (
	"context"
	"time"
)

type Repository interface {
	NextVersion(ctx context.Context) (int64, error)
	PrunedBefore(ctx context.Context) (int64, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}
