// Package share prepares share grants over saved records and accepts
// incoming shares. The actual sharing UI is an external collaborator behind
// the Presenter interface; this package only hands it a prepared share.
package share

import (
	"context"
	"errors"
	"sync"

	"github.com/vterekhov/recordsync/internal/client/classify"
	"github.com/vterekhov/recordsync/internal/client/models"
	"github.com/vterekhov/recordsync/internal/client/registry"
	"github.com/vterekhov/recordsync/internal/client/remote"
	"github.com/vterekhov/recordsync/internal/logging"
	"github.com/vterekhov/recordsync/internal/wire"
)

// DefaultTitle is the human-readable title given to shares prepared without
// an explicit one.
const DefaultTitle = "An Amazing Garden"

// ErrNotShareable is returned for records that have never been saved.
var ErrNotShareable = errors.New("record has no remote identity")

// Presenter is the external sharing-flow surface. It reports success or
// failure only; the core never constructs UI.
type Presenter interface {
	Present(ctx context.Context, prepared *wire.Share) error
}

// Adapter prepares and accepts shares.
type Adapter struct {
	container *remote.Container
	registry  *registry.Registry
	presenter Presenter
	log       logging.Logger

	mu         sync.Mutex
	sharedZone string // resolved once, cached thereafter
}

func NewAdapter(container *remote.Container, reg *registry.Registry, presenter Presenter, log logging.Logger) *Adapter {
	return &Adapter{
		container: container,
		registry:  reg,
		presenter: presenter,
		log:       log.With("module", "share"),
	}
}

// Prepare constructs a public read-write share over the record and submits it
// together with the record as one atomic batch: both land or neither does.
// On success the prepared share is handed to the presenter; on failure
// nothing is mutated.
func (a *Adapter) Prepare(ctx context.Context, rec *models.Record, title string) (*wire.Share, error) {
	if !rec.Saved() {
		return nil, &classify.ShareError{Err: ErrNotShareable}
	}
	if title == "" {
		title = DefaultTitle
	}

	saved, err := a.container.Private.SaveShare(ctx, wire.Share{
		RecordName: rec.RemoteName,
		Title:      title,
		Permission: wire.PermissionReadWrite,
	})
	if err != nil {
		return nil, &classify.ShareError{RecordName: rec.RemoteName, Err: err}
	}

	// The share flag is server-owned; refresh the record from the
	// authoritative representation rather than flipping it locally.
	if rr, err := a.container.Private.FetchRecord(ctx, rec.RemoteName); err == nil {
		if _, err := a.registry.Upsert(rr); err != nil {
			a.log.Warn(ctx, "refreshing shared record", "name", rr.Name, "error", err)
		}
	}

	if a.presenter != nil {
		if err := a.presenter.Present(ctx, saved); err != nil {
			return nil, &classify.ShareError{RecordName: rec.RemoteName, Err: err}
		}
	}
	return saved, nil
}

// Accept accepts an incoming share: the shared zone is resolved (and cached)
// first, then the root record is materialized into the registry via a point
// fetch.
func (a *Adapter) Accept(ctx context.Context, meta wire.ShareMetadata) (*models.Record, error) {
	if err := a.ensureSharedZone(ctx); err != nil {
		return nil, err
	}

	rr, err := a.container.Shared.AcceptShare(ctx, meta)
	if err != nil {
		return nil, &classify.ShareError{RecordName: meta.RootRecordName, Err: err}
	}

	rec, err := a.registry.Upsert(rr)
	if err != nil {
		return nil, &classify.ShareError{RecordName: meta.RootRecordName, Err: err}
	}
	return rec, nil
}

func (a *Adapter) ensureSharedZone(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sharedZone != "" {
		return nil
	}
	zones, err := a.container.Shared.FetchZones(ctx)
	if err != nil {
		return &classify.ShareError{Err: err}
	}
	if len(zones) > 0 {
		a.sharedZone = zones[0]
		a.log.Debug(ctx, "shared zone resolved", "zone", a.sharedZone)
	}
	return nil
}

// SharedZone reports the cached shared-zone name, if resolved.
func (a *Adapter) SharedZone() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sharedZone
}
