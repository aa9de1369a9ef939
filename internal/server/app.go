// Package server initializes and runs the sync server: it selects a store
// backend, wires the services and the WebSocket transport, and handles
// graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/elyesghazel/notedown/internal/logging"
	"github.com/elyesghazel/notedown/internal/server/config"
	"github.com/elyesghazel/notedown/internal/server/repositories/inmemory"
	"github.com/elyesghazel/notedown/internal/server/repositories/postgres"
	"github.com/elyesghazel/notedown/internal/server/services"
	"github.com/elyesghazel/notedown/internal/server/store"
	"github.com/elyesghazel/notedown/internal/server/ws"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  store.Store
	server *ws.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	var st store.Store
	if c.DatabaseDSN != "" {
		pg, err := postgres.NewStore(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		st = pg
	} else {
		logger.Warn(ctx, "no database DSN configured, using in-memory store")
		st = inmemory.New()
	}

	resolver := services.NewOwnershipResolver(st, logger)
	admission := services.NewAdmissionService(st, resolver, logger)
	syncSvc := services.NewSyncService(st, admission, logger)

	server := ws.NewServer(c.EndpointAddr, logger, syncSvc, st, c.SecretKey, c.AccessTokenValidityDuration, c.AllowAnyOrigin)

	return &App{config: c, logger: logger, store: st, server: server}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "store close error", "err", err)
	}
}
