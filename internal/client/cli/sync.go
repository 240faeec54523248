package cli

import (
	"context"
	"fmt"

	"github.com/vterekhov/recordsync/internal/client/classify"
	"github.com/vterekhov/recordsync/internal/client/engine"
	"github.com/vterekhov/recordsync/internal/client/push"
	"github.com/vterekhov/recordsync/internal/client/zones"
	"github.com/vterekhov/recordsync/internal/wire"
)

// setup ensures the record zone and subscriptions exist, then loads both
// scopes into the registry.
func (a *App) setup(ctx context.Context) {
	err := a.withRetry(ctx, classify.OpZoneCreate, func(ctx context.Context) error {
		return a.zones.EnsureZone(ctx, zones.DefaultZone)
	})
	if err != nil {
		a.report(err, classify.OpZoneCreate)
		return
	}

	err = a.withRetry(ctx, classify.OpSubscribe, func(ctx context.Context) error {
		return a.zones.RegisterSubscriptions(ctx, recordTypes)
	})
	if err != nil {
		a.report(err, classify.OpSubscribe)
		return
	}

	a.fetchAll(ctx)
	fmt.Println("Ready.")
}

func (a *App) fetchAll(ctx context.Context) {
	err := a.withRetry(ctx, classify.OpFetch, func(ctx context.Context) error {
		_, err := a.engine.FetchAllOwned(ctx)
		return err
	})
	if err != nil {
		a.report(err, classify.OpFetch)
	}

	err = a.withRetry(ctx, classify.OpFetch, func(ctx context.Context) error {
		_, err := a.engine.FetchAllShared(ctx)
		return err
	})
	if err != nil {
		a.report(err, classify.OpFetch)
	}
}

// sync runs a token-driven delta sync of both scopes.
func (a *App) sync(ctx context.Context) {
	for _, scope := range []wire.Scope{wire.ScopePrivate, wire.ScopeShared} {
		err := a.withRetry(ctx, classify.OpChanges, func(ctx context.Context) error {
			return a.engine.SyncScope(ctx, scope)
		})
		if err != nil {
			a.report(err, classify.OpChanges)
		}
	}
	fmt.Println("Synced.")
}

// watch keeps a push connection open and applies notifications as they
// arrive, until the user presses Enter.
func (a *App) watch(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.onEvent = func(ev engine.Event) {
		verb := "changed"
		if ev.Kind == engine.EventRemoved {
			verb = "removed"
		}
		fmt.Printf("[push] %s %s record %s\n", verb, ev.Record.Type(), ev.Record.RemoteName)
	}
	defer func() { a.onEvent = nil }()

	handlers := push.Handlers{
		Query: func(ctx context.Context, n wire.QueryNotification) {
			if err := a.engine.HandleQueryNotification(ctx, n); err != nil {
				a.report(err, classify.OpFetch)
			}
		},
		Database: func(ctx context.Context, n wire.DatabaseNotification) {
			if err := a.engine.HandleDatabaseNotification(ctx, n); err != nil {
				a.report(err, classify.OpChanges)
			}
		},
		Share: func(ctx context.Context, n wire.ShareMetadata) {
			if _, err := a.shares.Accept(ctx, n); err != nil {
				a.report(err, classify.OpShare)
			}
		},
		OnConnect: func(ctx context.Context) {
			// Catch up on anything missed while disconnected.
			_ = a.engine.SyncScope(ctx, wire.ScopePrivate)
			_ = a.engine.SyncScope(ctx, wire.ScopeShared)
		},
	}

	listener := push.NewListener(a.config.PushURL, a.token, handlers, a.logger)
	go func() {
		if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Println("push connection ended:", err)
		}
	}()

	fmt.Println("Watching for changes. Press Enter to stop.")
	_, _ = a.reader.ReadString('\n')
}
