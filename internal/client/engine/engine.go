// Package engine orchestrates record synchronization: saves, updates,
// deletes and queries against the private and shared databases, plus the
// change-token-driven delta sync behind push notifications. It owns the
// routing decision between the two databases and the process-wide token
// state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vterekhov/recordsync/internal/client/classify"
	"github.com/vterekhov/recordsync/internal/client/models"
	"github.com/vterekhov/recordsync/internal/client/registry"
	"github.com/vterekhov/recordsync/internal/client/remote"
	"github.com/vterekhov/recordsync/internal/client/zones"
	"github.com/vterekhov/recordsync/internal/logging"
	"github.com/vterekhov/recordsync/internal/wire"
)

var (
	// ErrAlreadySaved is returned by Save for records that already have a
	// remote identity; use Update instead.
	ErrAlreadySaved = errors.New("record already has a remote identity")
	// ErrNotSaved is returned by Update/Delete for records never saved.
	ErrNotSaved = errors.New("record has no remote identity")
)

// EventKind classifies observer events.
type EventKind string

const (
	// EventChanged fires once per record merged from the server, so
	// observers may receive it more than once for the same record.
	EventChanged EventKind = "changed"
	// EventRemoved fires when a record loses its remote representation.
	EventRemoved EventKind = "removed"
)

// Event is the "data changed" signal handed to the observer. Delivery is
// at-least-once; observers coalesce.
type Event struct {
	Kind   EventKind
	Record *models.Record
	Scope  wire.Scope
}

// Observer receives events on whatever goroutine completed the operation.
// Marshaling back to a UI-affinity context is the observer's job.
type Observer func(Event)

// scopeState holds the per-scope change cursors. syncMu serializes delta
// syncs for the scope: a token is only ever overwritten by the round-trip
// that produced it, never by a stale concurrent response.
type scopeState struct {
	syncMu sync.Mutex

	tokMu      sync.Mutex
	dbToken    wire.Token
	zoneTokens map[string]wire.Token
}

func (s *scopeState) databaseToken() wire.Token {
	s.tokMu.Lock()
	defer s.tokMu.Unlock()
	return s.dbToken
}

func (s *scopeState) setDatabaseToken(t wire.Token) {
	s.tokMu.Lock()
	defer s.tokMu.Unlock()
	s.dbToken = t
}

func (s *scopeState) zoneToken(zone string) wire.Token {
	s.tokMu.Lock()
	defer s.tokMu.Unlock()
	return s.zoneTokens[zone]
}

func (s *scopeState) setZoneToken(zone string, t wire.Token) {
	s.tokMu.Lock()
	defer s.tokMu.Unlock()
	s.zoneTokens[zone] = t
}

// Engine is the sync orchestrator. Construct one per authenticated actor and
// pass it explicitly; there is no process-wide instance.
type Engine struct {
	container *remote.Container
	registry  *registry.Registry
	actorID   string
	observer  Observer
	log       logging.Logger

	states map[wire.Scope]*scopeState
}

func New(container *remote.Container, reg *registry.Registry, actorID string, observer Observer, log logging.Logger) *Engine {
	return &Engine{
		container: container,
		registry:  reg,
		actorID:   actorID,
		observer:  observer,
		log:       log.With("module", "engine"),
		states: map[wire.Scope]*scopeState{
			wire.ScopePrivate: {zoneTokens: make(map[string]wire.Token)},
			wire.ScopeShared:  {zoneTokens: make(map[string]wire.Token)},
		},
	}
}

func (e *Engine) state(scope wire.Scope) *scopeState {
	return e.states[scope]
}

func (e *Engine) emit(ev Event) {
	if e.observer != nil {
		e.observer(ev)
	}
}

// Registry exposes the read-only record views to the presentation layer.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Save creates the record in the default zone of the private database. On
// success the server-assigned identity is merged back and the record is
// registered. On failure no local state is mutated.
func (e *Engine) Save(ctx context.Context, rec *models.Record) error {
	if rec.Saved() {
		return ErrAlreadySaved
	}

	rr := rec.Remote()
	if rr.Zone == "" {
		rr.Zone = zones.DefaultZone
	}

	saved, err := e.container.Private.SaveRecords(ctx, []*wire.Record{rr})
	if err != nil {
		return &classify.SaveError{Err: err}
	}
	if len(saved) != 1 {
		return &classify.SaveError{Err: fmt.Errorf("expected one echoed record, got %d", len(saved))}
	}

	rec.PopulateFrom(saved[0], e.registry.Find)
	e.registry.Add(rec)
	e.emit(Event{Kind: EventChanged, Record: rec, Scope: wire.ScopePrivate})
	return nil
}

// routeFor picks the database for a mutation of rec: shared records owned by
// someone else go through the shared database, everything else through the
// private one.
func (e *Engine) routeFor(rec *models.Record) remote.Database {
	if rec.Shared && rec.Owner != e.actorID {
		return e.container.Shared
	}
	return e.container.Private
}

// Update saves the current local state onto the existing remote record. The
// server echo is authoritative for the stored shape and is merged back.
func (e *Engine) Update(ctx context.Context, rec *models.Record) error {
	if !rec.Saved() {
		return ErrNotSaved
	}

	db := e.routeFor(rec)
	saved, err := db.SaveRecords(ctx, []*wire.Record{rec.Remote()})
	if err != nil {
		return &classify.SaveError{Names: []string{rec.RemoteName}, Err: err}
	}
	if len(saved) != 1 {
		return &classify.SaveError{Err: fmt.Errorf("expected one echoed record, got %d", len(saved))}
	}

	rec.PopulateFrom(saved[0], e.registry.Find)
	e.emit(Event{Kind: EventChanged, Record: rec, Scope: db.Scope()})
	return nil
}

// Delete removes the remote record. Only owners delete, so this always
// targets the private database. The record loses its remote identity but
// stays in the registry; eviction is the caller's decision.
func (e *Engine) Delete(ctx context.Context, rec *models.Record) error {
	if !rec.Saved() {
		return ErrNotSaved
	}

	name := rec.RemoteName
	if err := e.container.Private.DeleteRecord(ctx, name); err != nil {
		return &classify.DeleteError{Name: name, Err: err}
	}

	e.registry.Unbind(rec)
	e.emit(Event{Kind: EventRemoved, Record: rec, Scope: wire.ScopePrivate})
	return nil
}

// Query runs the predicate against both databases concurrently. Each half
// independently reports its first match through onMatch, so the callback may
// fire zero, one or two times for one logical query, possibly with the same
// merged record. Callers tolerate duplicates.
func (e *Engine) Query(ctx context.Context, q wire.Query, onMatch func(*models.Record)) error {
	var wg sync.WaitGroup
	errs := make([]error, 2)

	for i, db := range []remote.Database{e.container.Private, e.container.Shared} {
		wg.Add(1)
		go func(i int, db remote.Database) {
			defer wg.Done()

			recs, err := db.Query(ctx, q)
			if err != nil {
				errs[i] = fmt.Errorf("query %s: %w", db.Scope(), err)
				return
			}
			if len(recs) == 0 {
				return
			}

			rec, err := e.registry.Upsert(recs[0])
			if err != nil {
				e.log.Warn(ctx, "skipping query result", "error", err)
				return
			}
			if onMatch != nil {
				onMatch(rec)
			}
		}(i, db)
	}

	wg.Wait()
	return errors.Join(errs...)
}

// FetchAllOwned lists every record in the private database, merges them into
// the registry and returns the full sequence.
func (e *Engine) FetchAllOwned(ctx context.Context) ([]*models.Record, error) {
	return e.fetchAll(ctx, e.container.Private)
}

// FetchAllShared does the same for the shared database.
func (e *Engine) FetchAllShared(ctx context.Context) ([]*models.Record, error) {
	return e.fetchAll(ctx, e.container.Shared)
}

func (e *Engine) fetchAll(ctx context.Context, db remote.Database) ([]*models.Record, error) {
	rrs, err := db.FetchAll(ctx)
	if err != nil {
		return nil, &classify.FetchError{Err: err}
	}

	out := make([]*models.Record, 0, len(rrs))
	for _, rr := range rrs {
		rec := e.AddOrUpdate(ctx, rr)
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

// AddOrUpdate merges one remote representation into the registry,
// constructing the matching variant when the record is new. Records with an
// unrecognized type tag are logged and skipped, never fatal.
func (e *Engine) AddOrUpdate(ctx context.Context, rr *wire.Record) *models.Record {
	rec, err := e.registry.Upsert(rr)
	if err != nil {
		e.log.Warn(ctx, "skipping record", "name", rr.Name, "type", rr.Type, "error", err)
		return nil
	}
	return rec
}
