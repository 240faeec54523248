// Package repomanager provides the concrete RepositoryManager for
// PostgreSQL, wiring repository constructors and goose migrations together.
package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/vterekhov/recordsync/internal/dbx"
	"github.com/vterekhov/recordsync/internal/server/migrations"
	"github.com/vterekhov/recordsync/internal/server/repositories/cursors"
	"github.com/vterekhov/recordsync/internal/server/repositories/records"
	"github.com/vterekhov/recordsync/internal/server/repositories/shares"
	"github.com/vterekhov/recordsync/internal/server/repositories/subscriptions"
	"github.com/vterekhov/recordsync/internal/server/repositories/users"
	"github.com/vterekhov/recordsync/internal/server/repositories/zones"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Records(db dbx.DBTX) records.Repository {
	return records.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Zones(db dbx.DBTX) zones.Repository {
	return zones.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Subscriptions(db dbx.DBTX) subscriptions.Repository {
	return subscriptions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Shares(db dbx.DBTX) shares.Repository {
	return shares.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Cursors(db dbx.DBTX) cursors.Repository {
	return cursors.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing RunMigrations without a database.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations against the given
// connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
