// Package subscriptions persists change-interest registrations used by the
// push fan-out.
package subscriptions

import (
	"context"
	"fmt"

	"github.com/vterekhov/recordsync/internal/dbx"
	"github.com/vterekhov/recordsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert registers a subscription. IDs are deterministic on the client side
// so re-registration replaces the previous row.
func (r *PostgresRepository) Upsert(ctx context.Context, sub *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, actor, kind, scope, record_type, silent)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id, actor)
		DO UPDATE SET kind = EXCLUDED.kind, scope = EXCLUDED.scope,
			record_type = EXCLUDED.record_type, silent = EXCLUDED.silent
	`
	if _, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.Actor, sub.Kind, sub.Scope, sub.RecordType, sub.Silent); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// SelectByActors returns every subscription belonging to any of the given
// actors.
func (r *PostgresRepository) SelectByActors(ctx context.Context, actors []string) ([]*models.Subscription, error) {
	if len(actors) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, actor, kind, scope, record_type, silent FROM subscriptions
		WHERE actor = ANY($1)
	`
	rows, err := r.db.QueryContext(ctx, query, actors)
	if err != nil {
		return nil, fmt.Errorf("failed to select subscriptions: %w", err)
	}
	defer rows.Close()

	var result []*models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.Actor, &sub.Kind, &sub.Scope,
			&sub.RecordType, &sub.Silent); err != nil {
			return nil, err
		}
		result = append(result, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
