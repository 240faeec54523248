package repomanager

import (
	"context"
	"database/sql"

	"github.com/vterekhov/recordsync/internal/dbx"
	"github.com/vterekhov/recordsync/internal/server/repositories/cursors"
	"github.com/vterekhov/recordsync/internal/server/repositories/records"
	"github.com/vterekhov/recordsync/internal/server/repositories/shares"
	"github.com/vterekhov/recordsync/internal/server/repositories/subscriptions"
	"github.com/vterekhov/recordsync/internal/server/repositories/users"
	"github.com/vterekhov/recordsync/internal/server/repositories/zones"
)

// RepositoryManager vends repositories bound to a DBTX so services can run
// several of them inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Records(db dbx.DBTX) records.Repository
	Zones(db dbx.DBTX) zones.Repository
	Subscriptions(db dbx.DBTX) subscriptions.Repository
	Shares(db dbx.DBTX) shares.Repository
	Users(db dbx.DBTX) users.Repository
	Cursors(db dbx.DBTX) cursors.Repository
}
