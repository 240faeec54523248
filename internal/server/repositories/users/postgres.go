// Package users persists registered actors.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vterekhov/recordsync/internal/dbx"
	"github.com/vterekhov/recordsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, name string, secret []byte) (*models.User, error) {
	query := `
		INSERT INTO users (name, secret) VALUES ($1, $2)
		RETURNING id, created_at
	`
	user := &models.User{Name: name, Secret: secret}
	err := r.db.QueryRowContext(ctx, query, name, secret).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*models.User, error) {
	query := `SELECT id, name, secret, created_at FROM users WHERE name = $1`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&user.ID, &user.Name, &user.Secret, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
