package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/vterekhov/recordsync/internal/client/classify"
	"github.com/vterekhov/recordsync/internal/client/remote"
	"github.com/vterekhov/recordsync/internal/wire"
)

// HandleQueryNotification resolves a single-record change notification with a
// point fetch routed by the notification's scope. This is the low-latency
// path; SyncScope is the reconciliation path that also catches missed
// notifications, and the two agree eventually.
func (e *Engine) HandleQueryNotification(ctx context.Context, n wire.QueryNotification) error {
	if n.Change == wire.ChangeDeleted {
		if rec := e.registry.Find(n.RecordName); rec != nil {
			e.registry.Unbind(rec)
			e.registry.Remove(rec)
			e.emit(Event{Kind: EventRemoved, Record: rec, Scope: n.Scope})
		}
		return nil
	}

	db := e.container.Database(n.Scope)
	rr, err := db.FetchRecord(ctx, n.RecordName)
	if err != nil {
		return &classify.FetchError{Name: n.RecordName, Err: err}
	}

	rec := e.AddOrUpdate(ctx, rr)
	if rec != nil {
		e.emit(Event{Kind: EventChanged, Record: rec, Scope: n.Scope})
	}
	return nil
}

// HandleDatabaseNotification runs a delta sync for the notified scope.
func (e *Engine) HandleDatabaseNotification(ctx context.Context, n wire.DatabaseNotification) error {
	return e.SyncScope(ctx, n.Scope)
}

// SyncScope performs one incremental reconciliation pass for a scope:
//
//  1. Drain database-level changes exhaustively and persist the new
//     database token.
//  2. For every changed zone, fetch a single page of record changes and
//     advance that zone's token; a later notification continues from it.
//
// Concurrent calls for the same scope are serialized, so the second sync
// always sees the token the first one persisted.
func (e *Engine) SyncScope(ctx context.Context, scope wire.Scope) error {
	st := e.state(scope)
	st.syncMu.Lock()
	defer st.syncMu.Unlock()

	db := e.container.Database(scope)

	changedZones, token, err := e.drainDatabaseChanges(ctx, db, st.databaseToken())
	if errors.Is(err, remote.ErrExpiredToken) {
		// Stale cursor: discard it and replay the scope from scratch.
		e.log.Warn(ctx, "database token expired, forcing resync", "scope", scope)
		st.setDatabaseToken("")
		changedZones, token, err = e.drainDatabaseChanges(ctx, db, "")
	}
	if err != nil {
		return fmt.Errorf("database changes for %s: %w", scope, err)
	}
	st.setDatabaseToken(token)

	for _, zone := range changedZones {
		if err := e.syncZone(ctx, db, st, scope, zone); err != nil {
			return err
		}
	}
	return nil
}

// drainDatabaseChanges pages through database-level changes until the server
// signals completion, returning the union of changed zones and the final
// token.
func (e *Engine) drainDatabaseChanges(ctx context.Context, db remote.Database, since wire.Token) ([]string, wire.Token, error) {
	var zones []string
	seen := make(map[string]struct{})
	token := since

	for {
		page, err := db.DatabaseChanges(ctx, token)
		if err != nil {
			return nil, "", err
		}
		for _, z := range page.ChangedZones {
			if _, ok := seen[z]; ok {
				continue
			}
			seen[z] = struct{}{}
			zones = append(zones, z)
		}
		token = page.Token
		if !page.More {
			return zones, token, nil
		}
	}
}

// syncZone consumes exactly one page of record changes for the zone. The
// token advances incrementally; remaining pages wait for the next
// notification. An expired zone token is cleared and the zone is re-fetched
// from the beginning before anything else touches it (the sync mutex is held
// throughout).
func (e *Engine) syncZone(ctx context.Context, db remote.Database, st *scopeState, scope wire.Scope, zone string) error {
	page, err := db.ZoneChanges(ctx, zone, st.zoneToken(zone))
	if errors.Is(err, remote.ErrExpiredToken) {
		e.log.Warn(ctx, "zone token expired, forcing resync", "scope", scope, "zone", zone)
		st.setZoneToken(zone, "")
		page, err = db.ZoneChanges(ctx, zone, "")
	}
	if err != nil {
		return fmt.Errorf("zone changes for %s/%s: %w", scope, zone, err)
	}

	for _, rr := range page.Records {
		rec := e.AddOrUpdate(ctx, rr)
		if rec != nil {
			e.emit(Event{Kind: EventChanged, Record: rec, Scope: scope})
		}
	}
	for _, name := range page.DeletedNames {
		if rec := e.registry.Find(name); rec != nil {
			e.registry.Unbind(rec)
			e.registry.Remove(rec)
			e.emit(Event{Kind: EventRemoved, Record: rec, Scope: scope})
		}
	}

	st.setZoneToken(zone, page.Token)
	e.log.Debug(ctx, "zone page merged", "scope", scope, "zone", zone,
		"records", len(page.Records), "deleted", len(page.DeletedNames), "more", page.More)
	return nil
}

// DatabaseToken reports the persisted database-level cursor for a scope.
func (e *Engine) DatabaseToken(scope wire.Scope) wire.Token {
	return e.state(scope).databaseToken()
}

// ZoneToken reports the persisted record-level cursor for a zone.
func (e *Engine) ZoneToken(scope wire.Scope, zone string) wire.Token {
	return e.state(scope).zoneToken(zone)
}
