// Package models defines the server-side persistence shapes for the record
// sync service and their conversions to the wire protocol.
package models

import (
	"time"

	"github.com/vterekhov/recordsync/internal/wire"
)

// Record is one stored record row. Version is assigned from a global
// monotonic sequence on every write and doubles as the change cursor.
// Deleted rows are kept as tombstones until pruned.
type Record struct {
	Name      string
	Zone      string
	Type      string
	Owner     string
	Shared    bool
	Deleted   bool
	Version   int64
	Fields    map[string]wire.Field
	UpdatedAt time.Time
}

// Wire converts the row to its protocol representation. Tombstones carry no
// fields.
func (r *Record) Wire() *wire.Record {
	fields := r.Fields
	if r.Deleted {
		fields = nil
	}
	return &wire.Record{
		Name:    r.Name,
		Zone:    r.Zone,
		Type:    r.Type,
		Owner:   r.Owner,
		Shared:  r.Shared,
		Version: r.Version,
		Deleted: r.Deleted,
		Fields:  fields,
	}
}

// Zone is a named record partition belonging to one owner.
type Zone struct {
	Name      string
	Owner     string
	CreatedAt time.Time
}

// Subscription registers an actor's interest in changes. IDs are chosen by
// the client and re-registration is an upsert.
type Subscription struct {
	ID         string
	Actor      string
	Kind       wire.SubscriptionKind
	Scope      wire.Scope
	RecordType string
	Silent     bool
}

// Share is the ACL object on a root record. Participants are held in a
// separate table and joined on demand.
type Share struct {
	RecordName string
	Owner      string
	Zone       string
	Title      string
	Permission wire.SharePermission
	URL        string
	CreatedAt  time.Time
}

// User is one registered actor. Secret is a bcrypt hash.
type User struct {
	ID        string
	Name      string
	Secret    []byte
	CreatedAt time.Time
}

// ZoneChanges is a single page of record-level changes inside one zone.
type ZoneChanges struct {
	Records      []*Record
	DeletedNames []string
	NextVersion  int64
	More         bool
}

// ZonePage is a single page of database-level changes: the zones touched
// since the presented cursor.
type ZonePage struct {
	Zones       []string
	NextVersion int64
	More        bool
}
