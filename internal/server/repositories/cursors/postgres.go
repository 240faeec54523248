// Package cursors manages the global version sequence behind change tokens
// and the pruning horizon below which tokens expire.
package cursors

import (
	"context"
	"fmt"
	"time"

	"github.com/vterekhov/recordsync/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// NextVersion draws the next value from the global record version sequence.
func (r *PostgresRepository) NextVersion(ctx context.Context) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT nextval('record_version')`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) PrunedBefore(ctx context.Context) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT pruned_before FROM sync_meta WHERE id = 1`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

// Prune drops tombstones last touched before the cutoff and advances the
// horizon past them, returning the new horizon. Tokens older than the horizon
// can no longer produce a complete change feed and are rejected as expired
// afterwards.
func (r *PostgresRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		WITH victims AS (
			DELETE FROM records WHERE deleted AND updated_at < $1
			RETURNING version
		)
		UPDATE sync_meta
		SET pruned_before = GREATEST(pruned_before,
			COALESCE((SELECT MAX(version) + 1 FROM victims), pruned_before))
		WHERE id = 1
		RETURNING pruned_before
	`
	var horizon int64
	if err := r.db.QueryRowContext(ctx, query, cutoff).Scan(&horizon); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return horizon, nil
}
