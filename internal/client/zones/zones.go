// Package zones sets up the remote side a client expects before syncing: the
// custom record zone in the private database and the subscriptions that make
// the server push change notifications.
package zones

import (
	"context"
	"fmt"

	"github.com/vterekhov/recordsync/internal/client/classify"
	"github.com/vterekhov/recordsync/internal/client/models"
	"github.com/vterekhov/recordsync/internal/client/remote"
	"github.com/vterekhov/recordsync/internal/logging"
	"github.com/vterekhov/recordsync/internal/wire"
)

// DefaultZone is the custom zone all records are created in.
const DefaultZone = "GardenZone"

// Manager creates zones and registers subscriptions. All calls are
// idempotent; subscription identifiers are derived from the schema, so
// re-registering cannot duplicate server state.
type Manager struct {
	container *remote.Container
	log       logging.Logger
}

func NewManager(container *remote.Container, log logging.Logger) *Manager {
	return &Manager{container: container, log: log.With("module", "zones")}
}

// EnsureZone creates the named zone in the private database. Failures are
// returned as ZoneCreationError; the caller decides whether to retry.
func (m *Manager) EnsureZone(ctx context.Context, name string) error {
	if err := m.container.Private.SaveZone(ctx, name); err != nil {
		return &classify.ZoneCreationError{Zone: name, Err: err}
	}
	m.log.Debug(ctx, "zone ensured", "zone", name)
	return nil
}

// QuerySubscriptionID derives the deterministic identifier of the per-type
// query subscription.
func QuerySubscriptionID(t models.RecordType) string {
	return fmt.Sprintf("query-%s-private", t)
}

// DatabaseSubscriptionID derives the deterministic identifier of a
// whole-database subscription.
func DatabaseSubscriptionID(scope wire.Scope) string {
	return fmt.Sprintf("database-%s", scope)
}

// RegisterSubscriptions registers one query subscription per record type on
// the private database, plus one whole-database subscription on each of the
// private and shared databases, so any change wakes the client even for
// records it never explicitly subscribed to. All pushes are content-silent.
func (m *Manager) RegisterSubscriptions(ctx context.Context, types []models.RecordType) error {
	for _, t := range types {
		sub := wire.Subscription{
			ID:         QuerySubscriptionID(t),
			Kind:       wire.SubscriptionQuery,
			Scope:      wire.ScopePrivate,
			RecordType: string(t),
			Silent:     true,
		}
		if err := m.container.Private.SaveSubscription(ctx, sub); err != nil {
			return &classify.SubscriptionError{ID: sub.ID, Err: err}
		}
	}

	for _, db := range []remote.Database{m.container.Private, m.container.Shared} {
		sub := wire.Subscription{
			ID:     DatabaseSubscriptionID(db.Scope()),
			Kind:   wire.SubscriptionDatabase,
			Scope:  db.Scope(),
			Silent: true,
		}
		if err := db.SaveSubscription(ctx, sub); err != nil {
			return &classify.SubscriptionError{ID: sub.ID, Err: err}
		}
	}

	m.log.Info(ctx, "subscriptions registered", "types", len(types))
	return nil
}
