package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/vterekhov/recordsync/internal/dbx"
	"github.com/vterekhov/recordsync/internal/logging"
	"github.com/vterekhov/recordsync/internal/server/config"
	"github.com/vterekhov/recordsync/internal/server/models"
	"github.com/vterekhov/recordsync/internal/server/repositories/cursors"
	"github.com/vterekhov/recordsync/internal/server/repositories/records"
	"github.com/vterekhov/recordsync/internal/server/repositories/repomanager"
	"github.com/vterekhov/recordsync/internal/server/repositories/shares"
	"github.com/vterekhov/recordsync/internal/server/repositories/subscriptions"
	"github.com/vterekhov/recordsync/internal/wire"
)

// -------- test fakes --------

type fakeRecordsRepo struct {
	records.Repository
	rows     map[string]*models.Record
	upserted []*models.Record

	zonePage    *models.ZonePage
	zoneChanges *models.ZoneChanges
}

func (f *fakeRecordsRepo) Get(ctx context.Context, v records.View, name string) (*models.Record, error) {
	rec, ok := f.rows[name]
	if !ok {
		return nil, records.ErrNotFound
	}
	if v.Owner != "" && rec.Owner != v.Owner {
		return nil, records.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRecordsRepo) Upsert(ctx context.Context, rec *models.Record) error {
	f.upserted = append(f.upserted, rec)
	return nil
}

func (f *fakeRecordsRepo) ChangedZones(ctx context.Context, v records.View, since int64, limit int) (*models.ZonePage, error) {
	return f.zonePage, nil
}

func (f *fakeRecordsRepo) ZoneChanges(ctx context.Context, v records.View, zone string, since int64, limit int) (*models.ZoneChanges, error) {
	return f.zoneChanges, nil
}

type fakeCursorsRepo struct {
	cursors.Repository
	version     int64
	pruned      int64
	pruneCutoff time.Time
	pruneErr    error
}

func (f *fakeCursorsRepo) NextVersion(ctx context.Context) (int64, error) {
	f.version++
	return f.version, nil
}

func (f *fakeCursorsRepo) PrunedBefore(ctx context.Context) (int64, error) {
	return f.pruned, nil
}

func (f *fakeCursorsRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	f.pruneCutoff = cutoff
	return f.pruned, f.pruneErr
}

type fakeSharesRepo struct {
	shares.Repository
	participants []string
	canWrite     bool
}

func (f *fakeSharesRepo) ZoneParticipants(ctx context.Context, zone, owner string) ([]string, error) {
	return f.participants, nil
}

func (f *fakeSharesRepo) CanWrite(ctx context.Context, zone, owner, actor string) (bool, error) {
	return f.canWrite, nil
}

type fakeSubsRepo struct {
	subscriptions.Repository
	subs     []*models.Subscription
	upserted []*models.Subscription
}

func (f *fakeSubsRepo) SelectByActors(ctx context.Context, actors []string) ([]*models.Subscription, error) {
	var out []*models.Subscription
	for _, sub := range f.subs {
		for _, a := range actors {
			if sub.Actor == a {
				out = append(out, sub)
			}
		}
	}
	return out, nil
}

func (f *fakeSubsRepo) Upsert(ctx context.Context, sub *models.Subscription) error {
	f.upserted = append(f.upserted, sub)
	return nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	rec  *fakeRecordsRepo
	cur  *fakeCursorsRepo
	shr  *fakeSharesRepo
	subs *fakeSubsRepo
}

func (m *fakeRepoManager) Records(db dbx.DBTX) records.Repository { return m.rec }
func (m *fakeRepoManager) Cursors(db dbx.DBTX) cursors.Repository { return m.cur }
func (m *fakeRepoManager) Shares(db dbx.DBTX) shares.Repository   { return m.shr }
func (m *fakeRepoManager) Subscriptions(db dbx.DBTX) subscriptions.Repository {
	return m.subs
}

type fakePublisher struct {
	sent map[string][]wire.Notification
}

func (p *fakePublisher) Publish(actor string, n wire.Notification) {
	if p.sent == nil {
		p.sent = map[string][]wire.Notification{}
	}
	p.sent[actor] = append(p.sent[actor], n)
}

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newRecordService(t *testing.T, db *sql.DB, repos *fakeRepoManager, pub Publisher) *RecordService {
	t.Helper()
	cfg := &config.Config{ChangePageSize: 10}
	return NewRecordService(db, repos, cfg, pub, logging.NewNopLogger())
}

// -------- tests --------

func TestSaveBatch_AssignsIdentityAndVersions(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	repos := &fakeRepoManager{
		rec:  &fakeRecordsRepo{rows: map[string]*models.Record{}},
		cur:  &fakeCursorsRepo{},
		shr:  &fakeSharesRepo{},
		subs: &fakeSubsRepo{},
	}
	svc := newRecordService(t, db, repos, nil)

	saved, err := svc.SaveBatch(context.Background(), "alice", wire.ScopePrivate, []*wire.Record{
		{Zone: "GardenZone", Type: "Plant", Fields: map[string]wire.Field{"name": wire.StringField("Basil")}},
		{Zone: "GardenZone", Type: "Plant", Fields: map[string]wire.Field{"name": wire.StringField("Mint")}},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)

	require.NotEmpty(t, saved[0].Name)
	require.NotEmpty(t, saved[1].Name)
	require.NotEqual(t, saved[0].Name, saved[1].Name)
	require.Equal(t, int64(1), saved[0].Version)
	require.Equal(t, int64(2), saved[1].Version)
	require.Equal(t, "alice", saved[0].Owner)

	require.Len(t, repos.rec.upserted, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBatch_RejectsInvalidBatchAtomically(t *testing.T) {
	db, _ := newSQLMockDB(t)

	repos := &fakeRepoManager{
		rec:  &fakeRecordsRepo{rows: map[string]*models.Record{}},
		cur:  &fakeCursorsRepo{},
		shr:  &fakeSharesRepo{},
		subs: &fakeSubsRepo{},
	}
	svc := newRecordService(t, db, repos, nil)

	_, err := svc.SaveBatch(context.Background(), "alice", wire.ScopePrivate, []*wire.Record{
		{Zone: "GardenZone", Type: "Plant"},
		{Zone: "GardenZone"}, // missing type
		{Name: "ghost", Zone: "GardenZone", Type: "Plant"},
	})

	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	require.Equal(t, map[string]string{
		"#1":    "missing record type",
		"ghost": "record not found",
	}, partial.Failed)

	// Nothing was written: no transaction, no upserts.
	require.Empty(t, repos.rec.upserted)
	require.Zero(t, repos.cur.version)
}

func TestSaveBatch_UpdateKeepsServerOwnedState(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	repos := &fakeRepoManager{
		rec: &fakeRecordsRepo{rows: map[string]*models.Record{
			"p1": {Name: "p1", Zone: "GardenZone", Type: "Plant", Owner: "alice", Shared: true, Version: 3},
		}},
		cur:  &fakeCursorsRepo{version: 3},
		shr:  &fakeSharesRepo{},
		subs: &fakeSubsRepo{},
	}
	svc := newRecordService(t, db, repos, nil)

	saved, err := svc.SaveBatch(context.Background(), "alice", wire.ScopePrivate, []*wire.Record{
		{Name: "p1", Zone: "SomewhereElse", Type: "Plant", Shared: false,
			Fields: map[string]wire.Field{"name": wire.StringField("Basil v2")}},
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)

	// Zone, owner and the shared flag come from the stored row, not the
	// client payload.
	require.Equal(t, "GardenZone", saved[0].Zone)
	require.Equal(t, "alice", saved[0].Owner)
	require.True(t, saved[0].Shared)
	require.Equal(t, int64(4), saved[0].Version)
}

func TestSaveBatch_SharedScopeNeedsReadWriteShare(t *testing.T) {
	db, _ := newSQLMockDB(t)

	repos := &fakeRepoManager{
		rec: &fakeRecordsRepo{rows: map[string]*models.Record{
			"p1": {Name: "p1", Zone: "GardenZone", Type: "Plant", Owner: "alice", Shared: true, Version: 3},
		}},
		cur:  &fakeCursorsRepo{},
		shr:  &fakeSharesRepo{canWrite: false},
		subs: &fakeSubsRepo{},
	}
	svc := newRecordService(t, db, repos, nil)

	_, err := svc.SaveBatch(context.Background(), "bob", wire.ScopeShared, []*wire.Record{
		{Name: "p1", Zone: "GardenZone", Type: "Plant"},
	})

	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	require.Equal(t, "share is read-only", partial.Failed["p1"])
}

func TestSaveBatch_NewRecordsRejectedOnSharedScope(t *testing.T) {
	db, _ := newSQLMockDB(t)

	repos := &fakeRepoManager{
		rec:  &fakeRecordsRepo{rows: map[string]*models.Record{}},
		cur:  &fakeCursorsRepo{},
		shr:  &fakeSharesRepo{canWrite: true},
		subs: &fakeSubsRepo{},
	}
	svc := newRecordService(t, db, repos, nil)

	_, err := svc.SaveBatch(context.Background(), "bob", wire.ScopeShared, []*wire.Record{
		{Zone: "GardenZone", Type: "Plant"},
	})

	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	require.Equal(t, "new records go through the private scope", partial.Failed["#0"])
}

func TestDelete_TombstonesWithFreshVersion(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	repos := &fakeRepoManager{
		rec: &fakeRecordsRepo{rows: map[string]*models.Record{
			"p1": {Name: "p1", Zone: "GardenZone", Type: "Plant", Owner: "alice", Version: 5,
				Fields: map[string]wire.Field{"name": wire.StringField("Basil")}},
		}},
		cur:  &fakeCursorsRepo{version: 5},
		shr:  &fakeSharesRepo{},
		subs: &fakeSubsRepo{},
	}
	svc := newRecordService(t, db, repos, nil)

	require.NoError(t, svc.Delete(context.Background(), "alice", "p1"))

	require.Len(t, repos.rec.upserted, 1)
	row := repos.rec.upserted[0]
	require.True(t, row.Deleted)
	require.Nil(t, row.Fields)
	require.Equal(t, int64(6), row.Version)
}

func TestDelete_OnlyOwner(t *testing.T) {
	db, _ := newSQLMockDB(t)

	repos := &fakeRepoManager{
		rec: &fakeRecordsRepo{rows: map[string]*models.Record{
			"p1": {Name: "p1", Zone: "GardenZone", Type: "Plant", Owner: "alice", Version: 5},
		}},
		cur:  &fakeCursorsRepo{},
		shr:  &fakeSharesRepo{},
		subs: &fakeSubsRepo{},
	}
	svc := newRecordService(t, db, repos, nil)

	err := svc.Delete(context.Background(), "bob", "p1")
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, repos.rec.upserted)
}

func TestDatabaseChanges_ExpiredTokenBelowPruningHorizon(t *testing.T) {
	db, _ := newSQLMockDB(t)

	repos := &fakeRepoManager{
		rec:  &fakeRecordsRepo{},
		cur:  &fakeCursorsRepo{pruned: 10},
		shr:  &fakeSharesRepo{},
		subs: &fakeSubsRepo{},
	}
	svc := newRecordService(t, db, repos, nil)

	_, err := svc.DatabaseChanges(context.Background(), "alice", wire.ScopePrivate, "v5")
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestDatabaseChanges_PagesWithEncodedCursor(t *testing.T) {
	db, _ := newSQLMockDB(t)

	repos := &fakeRepoManager{
		rec: &fakeRecordsRepo{zonePage: &models.ZonePage{
			Zones:       []string{"GardenZone"},
			NextVersion: 42,
			More:        true,
		}},
		cur:  &fakeCursorsRepo{},
		shr:  &fakeSharesRepo{},
		subs: &fakeSubsRepo{},
	}
	svc := newRecordService(t, db, repos, nil)

	page, err := svc.DatabaseChanges(context.Background(), "alice", wire.ScopePrivate, "")
	require.NoError(t, err)
	require.Equal(t, []string{"GardenZone"}, page.ChangedZones)
	require.Equal(t, wire.Token("v42"), page.Token)
	require.True(t, page.More)
}

func TestZoneChanges_SplitsTombstones(t *testing.T) {
	db, _ := newSQLMockDB(t)

	repos := &fakeRepoManager{
		rec: &fakeRecordsRepo{zoneChanges: &models.ZoneChanges{
			Records: []*models.Record{
				{Name: "p1", Zone: "GardenZone", Type: "Plant", Owner: "alice", Version: 7,
					Fields: map[string]wire.Field{"name": wire.StringField("Basil")}},
			},
			DeletedNames: []string{"p2"},
			NextVersion:  8,
		}},
		cur:  &fakeCursorsRepo{},
		shr:  &fakeSharesRepo{},
		subs: &fakeSubsRepo{},
	}
	svc := newRecordService(t, db, repos, nil)

	page, err := svc.ZoneChanges(context.Background(), "alice", wire.ScopePrivate, "GardenZone", "")
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.Equal(t, []string{"p2"}, page.DeletedNames)
	require.Equal(t, wire.Token("v8"), page.Token)
	require.False(t, page.More)
}

func TestNotifyChange_FansOutByScopeAndType(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	pub := &fakePublisher{}
	repos := &fakeRepoManager{
		rec: &fakeRecordsRepo{rows: map[string]*models.Record{}},
		cur: &fakeCursorsRepo{},
		shr: &fakeSharesRepo{participants: []string{"bob"}},
		subs: &fakeSubsRepo{subs: []*models.Subscription{
			{ID: "query-Plant-private", Actor: "alice", Kind: wire.SubscriptionQuery,
				Scope: wire.ScopePrivate, RecordType: "Plant"},
			{ID: "query-Note-private", Actor: "alice", Kind: wire.SubscriptionQuery,
				Scope: wire.ScopePrivate, RecordType: "Note"},
			{ID: "database-shared", Actor: "bob", Kind: wire.SubscriptionDatabase,
				Scope: wire.ScopeShared},
			{ID: "database-private", Actor: "bob", Kind: wire.SubscriptionDatabase,
				Scope: wire.ScopePrivate},
		}},
	}
	svc := newRecordService(t, db, repos, pub)

	saved, err := svc.SaveBatch(context.Background(), "alice", wire.ScopePrivate, []*wire.Record{
		{Zone: "GardenZone", Type: "Plant"},
	})
	require.NoError(t, err)

	// Owner gets the matching query notification for the private scope.
	require.Len(t, pub.sent["alice"], 1)
	require.Equal(t, wire.NotifyQuery, pub.sent["alice"][0].Kind)
	require.Equal(t, saved[0].Name, pub.sent["alice"][0].Query.RecordName)
	require.Equal(t, wire.ScopePrivate, pub.sent["alice"][0].Query.Scope)
	require.Equal(t, wire.ChangeCreated, pub.sent["alice"][0].Query.Change)

	// The participant only hears through shared-scope subscriptions.
	require.Len(t, pub.sent["bob"], 1)
	require.Equal(t, wire.NotifyDatabase, pub.sent["bob"][0].Kind)
	require.Equal(t, wire.ScopeShared, pub.sent["bob"][0].Database.Scope)
}

func TestSaveSubscription_RequiresID(t *testing.T) {
	db, _ := newSQLMockDB(t)

	repos := &fakeRepoManager{
		rec:  &fakeRecordsRepo{},
		cur:  &fakeCursorsRepo{},
		shr:  &fakeSharesRepo{},
		subs: &fakeSubsRepo{},
	}
	svc := newRecordService(t, db, repos, nil)

	err := svc.SaveSubscription(context.Background(), "alice", wire.Subscription{})
	require.ErrorIs(t, err, ErrConflict)

	err = svc.SaveSubscription(context.Background(), "alice", wire.Subscription{
		ID: "database-private", Kind: wire.SubscriptionDatabase, Scope: wire.ScopePrivate, Silent: true,
	})
	require.NoError(t, err)
	require.Len(t, repos.subs.upserted, 1)
	require.Equal(t, "alice", repos.subs.upserted[0].Actor)
}

func TestSaveZone_SharedScopeRejected(t *testing.T) {
	db, _ := newSQLMockDB(t)

	repos := &fakeRepoManager{
		rec:  &fakeRecordsRepo{},
		cur:  &fakeCursorsRepo{},
		shr:  &fakeSharesRepo{},
		subs: &fakeSubsRepo{},
	}
	svc := newRecordService(t, db, repos, nil)

	err := svc.SaveZone(context.Background(), "alice", wire.ScopeShared, "GardenZone")
	require.ErrorIs(t, err, ErrPermission)
}

func TestParseToken(t *testing.T) {
	tests := []struct {
		name    string
		token   wire.Token
		want    int64
		wantErr error
	}{
		{name: "empty means beginning", token: "", want: 0},
		{name: "round trip", token: encodeToken(42), want: 42},
		{name: "garbage expires", token: "nonsense", wantErr: ErrExpiredToken},
		{name: "negative expires", token: "v-3", wantErr: ErrExpiredToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseToken(tt.token)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSaveBatch_TxErrorPropagates(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin().WillReturnError(errors.New("db down"))

	repos := &fakeRepoManager{
		rec:  &fakeRecordsRepo{rows: map[string]*models.Record{}},
		cur:  &fakeCursorsRepo{},
		shr:  &fakeSharesRepo{},
		subs: &fakeSubsRepo{},
	}
	svc := newRecordService(t, db, repos, nil)

	_, err := svc.SaveBatch(context.Background(), "alice", wire.ScopePrivate, []*wire.Record{
		{Zone: "GardenZone", Type: "Plant"},
	})
	require.ErrorContains(t, err, "db down")
}

func TestPruneTombstones_CutoffFollowsRetention(t *testing.T) {
	db, _ := newSQLMockDB(t)

	repos := &fakeRepoManager{
		rec:  &fakeRecordsRepo{},
		cur:  &fakeCursorsRepo{pruned: 7},
		shr:  &fakeSharesRepo{},
		subs: &fakeSubsRepo{},
	}
	cfg := &config.Config{ChangePageSize: 10, TombstoneRetention: 48 * time.Hour}
	svc := NewRecordService(db, repos, cfg, nil, logging.NewNopLogger())

	require.NoError(t, svc.PruneTombstones(context.Background()))

	want := time.Now().Add(-48 * time.Hour)
	require.WithinDuration(t, want, repos.cur.pruneCutoff, time.Minute)
}

func TestPruneTombstones_RepoErrorPropagates(t *testing.T) {
	db, _ := newSQLMockDB(t)

	repos := &fakeRepoManager{
		rec:  &fakeRecordsRepo{},
		cur:  &fakeCursorsRepo{pruneErr: errors.New("db down")},
		shr:  &fakeSharesRepo{},
		subs: &fakeSubsRepo{},
	}
	cfg := &config.Config{ChangePageSize: 10, TombstoneRetention: time.Hour}
	svc := NewRecordService(db, repos, cfg, nil, logging.NewNopLogger())

	err := svc.PruneTombstones(context.Background())
	require.ErrorContains(t, err, "db down")
}
