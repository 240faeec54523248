// Package zones persists the named record partitions each actor owns.
package zones

import (
	"context"
	"fmt"

	"github.com/vterekhov/recordsync/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert creates the zone if it does not exist. Re-creation is a no-op so
// clients can ensure their zone on every launch.
func (r *PostgresRepository) Upsert(ctx context.Context, name, owner string) error {
	query := `
		INSERT INTO zones (name, owner) VALUES ($1, $2)
		ON CONFLICT (name, owner) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, name, owner); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SelectByOwner(ctx context.Context, owner string) ([]string, error) {
	query := `SELECT name FROM zones WHERE owner = $1 ORDER BY name`
	return r.selectNames(ctx, query, owner)
}

// SelectSharedWith lists zones containing at least one share the actor has
// accepted.
func (r *PostgresRepository) SelectSharedWith(ctx context.Context, actor string) ([]string, error) {
	query := `
		SELECT DISTINCT s.zone FROM shares s
		JOIN share_participants p ON p.record_name = s.record_name
		WHERE p.actor = $1 ORDER BY s.zone
	`
	return r.selectNames(ctx, query, actor)
}

func (r *PostgresRepository) selectNames(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select zones: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		result = append(result, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
