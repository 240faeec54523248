// Package remote is the client's boundary to the record store. A Database is
// one logical database (private or shared) partitioned into zones; Container
// bundles the two plus the asset endpoints. The package also maps transport
// failures onto the sentinel errors the classifier understands.
package remote

import (
	"context"

	"github.com/vterekhov/recordsync/internal/wire"
)

// Database is one logical remote database. All operations are synchronous and
// run to completion once submitted; cancellation mid-flight is not supported
// beyond the context deadline on the underlying request.
type Database interface {
	// Scope reports which logical database this handle reaches.
	Scope() wire.Scope

	// SaveRecords submits an atomic batch save and returns the
	// server-echoed representations, which are authoritative for assigned
	// names, versions and share flags.
	SaveRecords(ctx context.Context, records []*wire.Record) ([]*wire.Record, error)

	// DeleteRecord removes one record by name.
	DeleteRecord(ctx context.Context, name string) error

	// FetchRecord fetches one record by name.
	FetchRecord(ctx context.Context, name string) (*wire.Record, error)

	// FetchAll lists every record visible in this database.
	FetchAll(ctx context.Context) ([]*wire.Record, error)

	// Query runs a predicate and returns matching records.
	Query(ctx context.Context, q wire.Query) ([]*wire.Record, error)

	// SaveZone idempotently creates a custom zone.
	SaveZone(ctx context.Context, name string) error

	// FetchZones lists the zones visible in this database.
	FetchZones(ctx context.Context) ([]string, error)

	// SaveSubscription idempotently registers a subscription.
	SaveSubscription(ctx context.Context, sub wire.Subscription) error

	// DatabaseChanges returns one page of database-level changes since the
	// given token. Callers drain pages while More is set.
	DatabaseChanges(ctx context.Context, since wire.Token) (*wire.DatabaseChangesPage, error)

	// ZoneChanges returns one page of record-level changes for a zone.
	ZoneChanges(ctx context.Context, zone string, since wire.Token) (*wire.ZoneChangesPage, error)

	// SaveShare atomically saves the root record and its share grant.
	SaveShare(ctx context.Context, share wire.Share) (*wire.Share, error)

	// AcceptShare accepts an incoming share and returns the root record.
	AcceptShare(ctx context.Context, meta wire.ShareMetadata) (*wire.Record, error)
}

// Assets issues externally addressed blob handles. Photo bytes travel through
// these URLs, never inline in a record.
type Assets interface {
	UploadURL(ctx context.Context) (key string, url string, err error)
	DownloadURL(ctx context.Context, key string) (string, error)
}

// Container bundles the two logical databases and the asset endpoints for one
// authenticated actor. It replaces any notion of a process-wide default
// container: construct one at startup and pass it down explicitly.
type Container struct {
	Private Database
	Shared  Database
	Assets  Assets
}

// Database returns the handle for the given scope.
func (c *Container) Database(scope wire.Scope) Database {
	if scope == wire.ScopeShared {
		return c.Shared
	}
	return c.Private
}
