// Package server initializes and runs the record sync server: database and
// migrations, services, the HTTP/websocket endpoint and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vterekhov/recordsync/internal/logging"
	"github.com/vterekhov/recordsync/internal/server/config"
	"github.com/vterekhov/recordsync/internal/server/httpapi"
	"github.com/vterekhov/recordsync/internal/server/repositories/repomanager"
	"github.com/vterekhov/recordsync/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	api     *httpapi.Server
	records *services.RecordService
}

func NewApp(cfg *config.Config) (*App, error) {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	hub := httpapi.NewHub(logger)
	recordService := services.NewRecordService(db, repos, cfg, hub, logger)
	shareService := services.NewShareService(db, repos, hub, logger)
	assetService := services.NewAssetService(cfg)
	authService := services.NewAuthService(db, repos, cfg)

	api := httpapi.NewServer(recordService, shareService, assetService, authService,
		hub, []byte(cfg.SecretKey), logger)

	return &App{config: cfg, logger: logger, db: db, api: api, records: recordService}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runTombstonePruner periodically drops expired deletion tombstones so the
// records table and change feeds do not grow without bound.
func (app *App) runTombstonePruner(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := app.records.PruneTombstones(ctx); err != nil {
				app.logger.Error(ctx, "tombstone prune failed", "error", err)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)
	go app.runTombstonePruner(ctx)

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.api.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "server failed", "error", err)
		}
	case <-ctx.Done():
		app.logger.Info(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
