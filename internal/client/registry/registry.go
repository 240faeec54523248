// Package registry keeps the in-memory collection of all known records. It
// has no network or UI side effects; completions firing on different
// goroutines go through its mutex.
package registry

import (
	"iter"
	"sync"

	"github.com/vterekhov/recordsync/internal/client/models"
	"github.com/vterekhov/recordsync/internal/wire"
)

// Registry is the process-wide record collection. A record appears at most
// once: keyed by remote name once assigned, by local ID before that.
type Registry struct {
	mu      sync.Mutex
	records []*models.Record
	byID    map[string]*models.Record
	byName  map[string]*models.Record
}

func New() *Registry {
	return &Registry{
		byID:   make(map[string]*models.Record),
		byName: make(map[string]*models.Record),
	}
}

// Add registers a locally constructed record. Re-adding refreshes the
// remote-name index, which matters right after the first save assigns one.
func (g *Registry) Add(rec *models.Record) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.byID[rec.ID]; !ok {
		g.records = append(g.records, rec)
		g.byID[rec.ID] = rec
	}
	if rec.RemoteName != "" {
		g.byName[rec.RemoteName] = rec
	}
}

// Upsert merges a remote representation. If a record with the same remote
// name is registered, it is populated in place so references held elsewhere
// stay valid; otherwise a new instance of the declared type is constructed.
// Unknown type tags return models.ErrUnknownType.
func (g *Registry) Upsert(rr *wire.Record) (*models.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if rec, ok := g.byName[rr.Name]; ok {
		rec.PopulateFrom(rr, g.findLocked)
		return rec, nil
	}

	rec, err := models.New(models.RecordType(rr.Type))
	if err != nil {
		return nil, err
	}
	rec.PopulateFrom(rr, g.findLocked)

	g.records = append(g.records, rec)
	g.byID[rec.ID] = rec
	g.byName[rec.RemoteName] = rec
	return rec, nil
}

// Find returns the record with the given remote name, or nil.
func (g *Registry) Find(remoteName string) *models.Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.findLocked(remoteName)
}

// findLocked is the resolver handed to PopulateFrom during Upsert; the mutex
// is already held.
func (g *Registry) findLocked(remoteName string) *models.Record {
	return g.byName[remoteName]
}

// ByType returns a restartable sequence over records of one type, in
// insertion order. The sequence iterates a snapshot, so mutating the
// registry mid-iteration is safe.
func (g *Registry) ByType(t models.RecordType) iter.Seq[*models.Record] {
	return func(yield func(*models.Record) bool) {
		for _, rec := range g.snapshot() {
			if rec.Type() != t {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// All returns a snapshot of every registered record in insertion order.
func (g *Registry) All() []*models.Record {
	return g.snapshot()
}

func (g *Registry) snapshot() []*models.Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*models.Record, len(g.records))
	copy(out, g.records)
	return out
}

// Unbind drops a record's remote identity and its remote-name index entry.
// The record stays registered as unsaved; used after a successful delete.
func (g *Registry) Unbind(rec *models.Record) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if rec.RemoteName != "" {
		delete(g.byName, rec.RemoteName)
		rec.RemoteName = ""
	}
	rec.Shared = false
	rec.Version = 0
}

// Remove evicts a record by local identity. Removing an absent record is a
// no-op.
func (g *Registry) Remove(rec *models.Record) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.byID[rec.ID]; !ok {
		return
	}
	delete(g.byID, rec.ID)
	if rec.RemoteName != "" {
		delete(g.byName, rec.RemoteName)
	}
	for i, r := range g.records {
		if r.ID == rec.ID {
			g.records = append(g.records[:i], g.records[i+1:]...)
			break
		}
	}
}

// Len reports the number of registered records.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}
