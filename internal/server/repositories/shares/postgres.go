// Package shares persists the ACL objects granting actors access to shared
// records and tracks who accepted them.
package shares

import (
	"context"
	"database/sql"
	"errors"
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

func (r *PostgresRepository) Create(ctx context.Context, share *models.Share) error {
	query := `
		INSERT INTO shares (record_name, owner, zone, title, permission, url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (record_name)
		DO UPDATE SET title = EXCLUDED.title, permission = EXCLUDED.permission
	`
	if _, err := r.db.ExecContext(ctx, query,
		share.RecordName, share.Owner, share.Zone, share.Title, share.Permission, share.URL); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, recordName string) (*models.Share, error) {
	query := `
		SELECT record_name, owner, zone, title, permission, url, created_at
		FROM shares WHERE record_name = $1
	`
	var share models.Share
	err := r.db.QueryRowContext(ctx, query, recordName).Scan(
		&share.RecordName, &share.Owner, &share.Zone, &share.Title,
		&share.Permission, &share.URL, &share.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &share, nil
}

// AddParticipant records an acceptance. Accepting twice is a no-op.
func (r *PostgresRepository) AddParticipant(ctx context.Context, recordName, actor string) error {
	query := `
		INSERT INTO share_participants (record_name, actor) VALUES ($1, $2)
		ON CONFLICT (record_name, actor) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, recordName, actor); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Participants(ctx context.Context, recordName string) ([]string, error) {
	query := `SELECT actor FROM share_participants WHERE record_name = $1`
	return r.selectActors(ctx, query, recordName)
}

// CanWrite reports whether the actor accepted a read-write share rooted in
// the given zone of the given owner.
func (r *PostgresRepository) CanWrite(ctx context.Context, zone, owner, actor string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM share_participants p
			JOIN shares s ON s.record_name = p.record_name
			WHERE s.zone = $1 AND s.owner = $2 AND p.actor = $3
			  AND s.permission = 'read-write'
		)
	`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, zone, owner, actor).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// ZoneParticipants lists every actor who accepted any share rooted in the
// given zone of the given owner.
func (r *PostgresRepository) ZoneParticipants(ctx context.Context, zone, owner string) ([]string, error) {
	query := `
		SELECT DISTINCT p.actor FROM share_participants p
		JOIN shares s ON s.record_name = p.record_name
		WHERE s.zone = $1 AND s.owner = $2
	`
	return r.selectActors(ctx, query, zone, owner)
}

func (r *PostgresRepository) selectActors(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select participants: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var actor string
		if err := rows.Scan(&actor); err != nil {
			return nil, err
		}
		result = append(result, actor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
