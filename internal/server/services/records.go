// Package services contains the server-side business logic: atomic record
// batches, change feeds, sharing, asset presigning and actor auth.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vterekhov/recordsync/internal/dbx"
	"github.com/vterekhov/recordsync/internal/logging"
	"github.com/vterekhov/recordsync/internal/server/config"
	"github.com/vterekhov/recordsync/internal/server/models"
	"github.com/vterekhov/recordsync/internal/server/repositories/records"
	"github.com/vterekhov/recordsync/internal/server/repositories/repomanager"
	"github.com/vterekhov/recordsync/internal/wire"
)

// Publisher delivers push notifications to connected actors. The websocket
// hub implements it; a nil-safe no-op is used in tests.
type Publisher interface {
	Publish(actor string, n wire.Notification)
}

// RecordService implements record storage semantics: batch saves are atomic,
// every write draws a fresh version from the global sequence, and change
// feeds page over versions.
type RecordService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	cfg   *config.Config
	pub   Publisher
	log   logging.Logger
}

func NewRecordService(db *sql.DB, repos repomanager.RepositoryManager, cfg *config.Config, pub Publisher, log logging.Logger) *RecordService {
	return &RecordService{
		db:    db,
		repos: repos,
		cfg:   cfg,
		pub:   pub,
		log:   log.With("module", "records"),
	}
}

func view(actor string, scope wire.Scope) records.View {
	if scope == wire.ScopeShared {
		return records.SharedWith(actor)
	}
	return records.OwnedBy(actor)
}

// SaveBatch saves all records or none. Validation failures reject the whole
// batch with a PartialError naming the offending records.
func (s *RecordService) SaveBatch(ctx context.Context, actor string, scope wire.Scope, recs []*wire.Record) ([]*wire.Record, error) {
	recordRepo := s.repos.Records(s.db)

	failed := map[string]string{}
	existing := map[string]*models.Record{}
	for i, rec := range recs {
		key := rec.Name
		if key == "" {
			key = "#" + strconv.Itoa(i)
		}
		switch {
		case rec.Type == "":
			failed[key] = "missing record type"
		case rec.Zone == "":
			failed[key] = "missing zone"
		case rec.Name == "" && scope == wire.ScopeShared:
			failed[key] = "new records go through the private scope"
		case rec.Name != "":
			cur, err := recordRepo.Get(ctx, view(actor, scope), rec.Name)
			if err != nil {
				if errors.Is(err, records.ErrNotFound) {
					failed[key] = "record not found"
					continue
				}
				return nil, err
			}
			if scope == wire.ScopeShared {
				ok, err := s.repos.Shares(s.db).CanWrite(ctx, cur.Zone, cur.Owner, actor)
				if err != nil {
					return nil, err
				}
				if !ok {
					failed[key] = "share is read-only"
					continue
				}
			}
			existing[rec.Name] = cur
		}
	}
	if len(failed) > 0 {
		return nil, &PartialError{Failed: failed}
	}

	var saved []*models.Record
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		recordRepo := s.repos.Records(tx)
		cursorRepo := s.repos.Cursors(tx)

		for _, rec := range recs {
			version, err := cursorRepo.NextVersion(ctx)
			if err != nil {
				return err
			}

			row := &models.Record{
				Name:    rec.Name,
				Zone:    rec.Zone,
				Type:    rec.Type,
				Owner:   actor,
				Version: version,
				Fields:  rec.Fields,
			}
			if cur := existing[rec.Name]; cur != nil {
				// Ownership and the shared flag are server state; the
				// client cannot change them through a save.
				row.Owner = cur.Owner
				row.Shared = cur.Shared
				row.Zone = cur.Zone
			} else {
				row.Name = uuid.NewString()
			}

			if err := recordRepo.Upsert(ctx, row); err != nil {
				return err
			}
			saved = append(saved, row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("saving batch: %w", err)
	}

	out := make([]*wire.Record, 0, len(saved))
	for _, row := range saved {
		out = append(out, row.Wire())
		s.notifyChange(ctx, row, changeKind(existing[row.Name] != nil))
	}
	return out, nil
}

func changeKind(existed bool) wire.ChangeKind {
	if existed {
		return wire.ChangeUpdated
	}
	return wire.ChangeCreated
}

// Delete tombstones a record. Only the owner may delete, regardless of the
// scope the call arrived through.
func (s *RecordService) Delete(ctx context.Context, actor, name string) error {
	recordRepo := s.repos.Records(s.db)

	cur, err := recordRepo.Get(ctx, records.OwnedBy(actor), name)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		version, err := s.repos.Cursors(tx).NextVersion(ctx)
		if err != nil {
			return err
		}
		cur.Deleted = true
		cur.Fields = nil
		cur.Version = version
		return s.repos.Records(tx).Upsert(ctx, cur)
	})
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	s.notifyChange(ctx, cur, wire.ChangeDeleted)
	return nil
}

func (s *RecordService) Fetch(ctx context.Context, actor string, scope wire.Scope, name string) (*wire.Record, error) {
	rec, err := s.repos.Records(s.db).Get(ctx, view(actor, scope), name)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec.Wire(), nil
}

func (s *RecordService) FetchAll(ctx context.Context, actor string, scope wire.Scope) ([]*wire.Record, error) {
	rows, err := s.repos.Records(s.db).Select(ctx, view(actor, scope))
	if err != nil {
		return nil, err
	}
	return wireRecords(rows), nil
}

func (s *RecordService) Query(ctx context.Context, actor string, scope wire.Scope, q wire.Query) ([]*wire.Record, error) {
	rows, err := s.repos.Records(s.db).Query(ctx, view(actor, scope), q)
	if err != nil {
		return nil, err
	}
	return wireRecords(rows), nil
}

func wireRecords(rows []*models.Record) []*wire.Record {
	out := make([]*wire.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Wire())
	}
	return out
}

// SaveZone creates a zone in the actor's private scope. Shared-scope zones
// come into being through accepted shares, never directly.
func (s *RecordService) SaveZone(ctx context.Context, actor string, scope wire.Scope, name string) error {
	if scope == wire.ScopeShared {
		return ErrPermission
	}
	if name == "" {
		return fmt.Errorf("%w: empty zone name", ErrConflict)
	}
	return s.repos.Zones(s.db).Upsert(ctx, name, actor)
}

func (s *RecordService) FetchZones(ctx context.Context, actor string, scope wire.Scope) ([]string, error) {
	if scope == wire.ScopeShared {
		return s.repos.Zones(s.db).SelectSharedWith(ctx, actor)
	}
	return s.repos.Zones(s.db).SelectByOwner(ctx, actor)
}

func (s *RecordService) SaveSubscription(ctx context.Context, actor string, sub wire.Subscription) error {
	if sub.ID == "" {
		return fmt.Errorf("%w: empty subscription id", ErrConflict)
	}
	return s.repos.Subscriptions(s.db).Upsert(ctx, &models.Subscription{
		ID:         sub.ID,
		Actor:      actor,
		Kind:       sub.Kind,
		Scope:      sub.Scope,
		RecordType: sub.RecordType,
		Silent:     sub.Silent,
	})
}

// DatabaseChanges returns one page of zones changed since the token. Tokens
// older than the pruning horizon are rejected as expired.
func (s *RecordService) DatabaseChanges(ctx context.Context, actor string, scope wire.Scope, since wire.Token) (*wire.DatabaseChangesPage, error) {
	version, err := s.checkToken(ctx, since)
	if err != nil {
		return nil, err
	}

	page, err := s.repos.Records(s.db).ChangedZones(ctx, view(actor, scope), version, s.cfg.ChangePageSize)
	if err != nil {
		return nil, err
	}
	return &wire.DatabaseChangesPage{
		ChangedZones: page.Zones,
		Token:        encodeToken(page.NextVersion),
		More:         page.More,
	}, nil
}

// ZoneChanges returns one page of record changes in a zone since the token.
func (s *RecordService) ZoneChanges(ctx context.Context, actor string, scope wire.Scope, zone string, since wire.Token) (*wire.ZoneChangesPage, error) {
	version, err := s.checkToken(ctx, since)
	if err != nil {
		return nil, err
	}

	page, err := s.repos.Records(s.db).ZoneChanges(ctx, view(actor, scope), zone, version, s.cfg.ChangePageSize)
	if err != nil {
		return nil, err
	}
	return &wire.ZoneChangesPage{
		Records:      wireRecords(page.Records),
		DeletedNames: page.DeletedNames,
		Token:        encodeToken(page.NextVersion),
		More:         page.More,
	}, nil
}

// PruneTombstones drops deleted records older than the configured retention
// and advances the horizon past them, expiring any change tokens that would
// otherwise miss those deletions.
func (s *RecordService) PruneTombstones(ctx context.Context) error {
	cutoff := time.Now().Add(-s.cfg.TombstoneRetention)
	horizon, err := s.repos.Cursors(s.db).Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pruning tombstones: %w", err)
	}
	s.log.Info(ctx, "pruned tombstones", "cutoff", cutoff, "horizon", horizon)
	return nil
}

func (s *RecordService) checkToken(ctx context.Context, since wire.Token) (int64, error) {
	version, err := parseToken(since)
	if err != nil {
		return 0, err
	}
	if version == 0 {
		return 0, nil
	}
	pruned, err := s.repos.Cursors(s.db).PrunedBefore(ctx)
	if err != nil {
		return 0, err
	}
	if version < pruned {
		return 0, ErrExpiredToken
	}
	return version, nil
}

// notifyChange fans a committed change out to the owner's private-scope
// subscriptions and the zone participants' shared-scope subscriptions.
func (s *RecordService) notifyChange(ctx context.Context, rec *models.Record, change wire.ChangeKind) {
	if s.pub == nil {
		return
	}

	participants, err := s.repos.Shares(s.db).ZoneParticipants(ctx, rec.Zone, rec.Owner)
	if err != nil {
		s.log.Warn(ctx, "listing zone participants for push", "error", err)
		return
	}

	actors := append([]string{rec.Owner}, participants...)
	subs, err := s.repos.Subscriptions(s.db).SelectByActors(ctx, actors)
	if err != nil {
		s.log.Warn(ctx, "listing subscriptions for push", "error", err)
		return
	}

	for _, sub := range subs {
		scope := wire.ScopePrivate
		if sub.Actor != rec.Owner {
			scope = wire.ScopeShared
		}
		if sub.Scope != scope {
			continue
		}

		switch sub.Kind {
		case wire.SubscriptionQuery:
			if sub.RecordType != rec.Type {
				continue
			}
			s.pub.Publish(sub.Actor, wire.Notification{
				Kind: wire.NotifyQuery,
				Query: &wire.QueryNotification{
					RecordName: rec.Name,
					Scope:      scope,
					Change:     change,
				},
			})
		case wire.SubscriptionDatabase:
			s.pub.Publish(sub.Actor, wire.Notification{
				Kind:     wire.NotifyDatabase,
				Database: &wire.DatabaseNotification{Scope: scope},
			})
		}
	}
}
