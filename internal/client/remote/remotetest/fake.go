// Package remotetest provides an in-memory fake of the remote.Database
// boundary for tests: records live in a map, change pages are scripted, and
// every presented change token is recorded so tests can assert cursor
// behavior.
package remotetest

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/vterekhov/recordsync/internal/client/remote"
	"github.com/vterekhov/recordsync/internal/wire"
)

// FakeDatabase implements remote.Database in memory.
type FakeDatabase struct {
	mu sync.Mutex

	DBScope wire.Scope
	Owner   string

	Records map[string]*wire.Record
	Zones   []string
	Subs    map[string]wire.Subscription
	Shares  map[string]wire.Share

	// Errs injects an error per method name ("SaveRecords", ...). The
	// error is returned until cleared. ErrsOnce is consumed on first use.
	Errs     map[string]error
	ErrsOnce map[string]error

	// Scripted change feeds, served in order. When exhausted, empty
	// terminal pages are returned.
	DatabasePages []*wire.DatabaseChangesPage
	ZonePages     map[string][]*wire.ZoneChangesPage

	// Presented tokens, in call order.
	DatabaseSince []wire.Token
	ZoneSince     map[string][]wire.Token

	// Calls counts invocations per method name.
	Calls map[string]int
}

func NewFakeDatabase(scope wire.Scope, owner string) *FakeDatabase {
	return &FakeDatabase{
		DBScope:   scope,
		Owner:     owner,
		Records:   make(map[string]*wire.Record),
		Subs:      make(map[string]wire.Subscription),
		Shares:    make(map[string]wire.Share),
		Errs:      make(map[string]error),
		ErrsOnce:  make(map[string]error),
		ZonePages: make(map[string][]*wire.ZoneChangesPage),
		ZoneSince: make(map[string][]wire.Token),
		Calls:     make(map[string]int),
	}
}

func (f *FakeDatabase) fail(method string) error {
	f.Calls[method]++
	if err, ok := f.ErrsOnce[method]; ok {
		delete(f.ErrsOnce, method)
		return err
	}
	return f.Errs[method]
}

func copyRecord(r *wire.Record) *wire.Record {
	out := *r
	out.Fields = make(map[string]wire.Field, len(r.Fields))
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return &out
}

func (f *FakeDatabase) Scope() wire.Scope { return f.DBScope }

func (f *FakeDatabase) SaveRecords(ctx context.Context, records []*wire.Record) ([]*wire.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SaveRecords"); err != nil {
		return nil, err
	}

	out := make([]*wire.Record, 0, len(records))
	for _, r := range records {
		saved := copyRecord(r)
		if saved.Name == "" {
			saved.Name = uuid.NewString()
		}
		if prev, ok := f.Records[saved.Name]; ok {
			saved.Version = prev.Version + 1
			saved.Shared = prev.Shared
			saved.Owner = prev.Owner
		} else {
			saved.Version = 1
			saved.Owner = f.Owner
		}
		f.Records[saved.Name] = saved
		out = append(out, copyRecord(saved))
	}
	return out, nil
}

func (f *FakeDatabase) DeleteRecord(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteRecord"); err != nil {
		return err
	}
	if _, ok := f.Records[name]; !ok {
		return remote.ErrNotFound
	}
	delete(f.Records, name)
	return nil
}

func (f *FakeDatabase) FetchRecord(ctx context.Context, name string) (*wire.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("FetchRecord"); err != nil {
		return nil, err
	}
	r, ok := f.Records[name]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return copyRecord(r), nil
}

func (f *FakeDatabase) FetchAll(ctx context.Context) ([]*wire.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("FetchAll"); err != nil {
		return nil, err
	}
	out := make([]*wire.Record, 0, len(f.Records))
	for _, r := range f.Records {
		out = append(out, copyRecord(r))
	}
	return out, nil
}

func (f *FakeDatabase) Query(ctx context.Context, q wire.Query) ([]*wire.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Query"); err != nil {
		return nil, err
	}

	var out []*wire.Record
	for _, r := range f.Records {
		if r.Type != q.Type {
			continue
		}
		field, ok := r.Fields[q.Field]
		if !ok {
			continue
		}
		switch q.Op {
		case wire.QueryContains:
			if strings.Contains(field.String, q.Value) {
				out = append(out, copyRecord(r))
			}
		default:
			if field.String == q.Value {
				out = append(out, copyRecord(r))
			}
		}
	}
	return out, nil
}

func (f *FakeDatabase) SaveZone(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SaveZone"); err != nil {
		return err
	}
	for _, z := range f.Zones {
		if z == name {
			return nil
		}
	}
	f.Zones = append(f.Zones, name)
	return nil
}

func (f *FakeDatabase) FetchZones(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("FetchZones"); err != nil {
		return nil, err
	}
	return append([]string(nil), f.Zones...), nil
}

func (f *FakeDatabase) SaveSubscription(ctx context.Context, sub wire.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SaveSubscription"); err != nil {
		return err
	}
	f.Subs[sub.ID] = sub
	return nil
}

func (f *FakeDatabase) DatabaseChanges(ctx context.Context, since wire.Token) (*wire.DatabaseChangesPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DatabaseSince = append(f.DatabaseSince, since)
	if err := f.fail("DatabaseChanges"); err != nil {
		return nil, err
	}
	if len(f.DatabasePages) == 0 {
		return &wire.DatabaseChangesPage{Token: since}, nil
	}
	page := f.DatabasePages[0]
	f.DatabasePages = f.DatabasePages[1:]
	return page, nil
}

func (f *FakeDatabase) ZoneChanges(ctx context.Context, zone string, since wire.Token) (*wire.ZoneChangesPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ZoneSince[zone] = append(f.ZoneSince[zone], since)
	if err := f.fail("ZoneChanges"); err != nil {
		return nil, err
	}
	pages := f.ZonePages[zone]
	if len(pages) == 0 {
		return &wire.ZoneChangesPage{Token: since}, nil
	}
	f.ZonePages[zone] = pages[1:]
	return pages[0], nil
}

func (f *FakeDatabase) SaveShare(ctx context.Context, share wire.Share) (*wire.Share, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SaveShare"); err != nil {
		return nil, err
	}
	rec, ok := f.Records[share.RecordName]
	if !ok {
		return nil, remote.ErrNotFound
	}
	rec.Shared = true
	saved := share
	saved.URL = "https://share.test/" + share.RecordName
	f.Shares[share.RecordName] = saved
	return &saved, nil
}

func (f *FakeDatabase) AcceptShare(ctx context.Context, meta wire.ShareMetadata) (*wire.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("AcceptShare"); err != nil {
		return nil, err
	}
	r, ok := f.Records[meta.RootRecordName]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return copyRecord(r), nil
}

// NewFakeContainer builds a container over two fresh fakes.
func NewFakeContainer(owner string) (*remote.Container, *FakeDatabase, *FakeDatabase) {
	private := NewFakeDatabase(wire.ScopePrivate, owner)
	shared := NewFakeDatabase(wire.ScopeShared, owner)
	return &remote.Container{Private: private, Shared: shared}, private, shared
}
