// Package cli implements the interactive garden sync client: a small REPL
// over the sync engine, zone manager and share adapter.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/vterekhov/recordsync/internal/client/config"
	"github.com/vterekhov/recordsync/internal/client/engine"
	"github.com/vterekhov/recordsync/internal/client/models"
	"github.com/vterekhov/recordsync/internal/client/registry"
	"github.com/vterekhov/recordsync/internal/client/remote"
	"github.com/vterekhov/recordsync/internal/client/share"
	"github.com/vterekhov/recordsync/internal/client/zones"
	"github.com/vterekhov/recordsync/internal/logging"
	"github.com/vterekhov/recordsync/internal/wire"
)

// recordTypes are the types the client subscribes to and syncs.
var recordTypes = []models.RecordType{models.TypePlant, models.TypeNote, models.TypePhoto}

type App struct {
	config *config.Config
	logger logging.Logger
	reader *bufio.Reader

	actorID   string
	token     string
	container *remote.Container
	engine    *engine.Engine
	zones     *zones.Manager
	shares    *share.Adapter

	onEvent func(engine.Event)
}

func NewApp(c *config.Config) (*App, error) {
	sl := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	app := &App{
		config: c,
		logger: logging.NewSlogLogger(sl),
		reader: bufio.NewReader(os.Stdin),
	}

	if c.ActorID != "" && c.ActorToken != "" {
		app.initSession(c.ActorID, c.ActorToken)
	}
	return app, nil
}

// initSession builds the sync stack for an authenticated actor.
func (a *App) initSession(actorID, token string) {
	a.actorID = actorID
	a.token = token
	a.container = remote.NewHTTPContainer(a.config.ServerURL, token)

	reg := registry.New()
	observer := func(ev engine.Event) {
		if f := a.onEvent; f != nil {
			f(ev)
		}
	}
	a.engine = engine.New(a.container, reg, actorID, observer, a.logger)
	a.zones = zones.NewManager(a.container, a.logger)
	a.shares = share.NewAdapter(a.container, reg, consolePresenter{}, a.logger)
}

func (a *App) isLoggedIn() bool {
	return a.engine != nil
}

// consolePresenter stands in for the sharing UI: it just prints the
// invitation URL.
type consolePresenter struct{}

func (consolePresenter) Present(ctx context.Context, prepared *wire.Share) error {
	fmt.Printf("Share %q ready. Invitation URL: %s\n", prepared.Title, prepared.URL)
	return nil
}

func (a *App) Run(ctx context.Context) {
	a.Root(ctx)
}
