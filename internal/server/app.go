// Package server wires the store server: it selects the document backend,
// serves it over gRPC and shuts down on SIGINT, SIGTERM or SIGQUIT.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"github.com/dmitrijs2005/adminconsole/internal/docstore/memory"
	"github.com/dmitrijs2005/adminconsole/internal/docstore/postgres"
	"github.com/dmitrijs2005/adminconsole/internal/logging"
	"github.com/dmitrijs2005/adminconsole/internal/server/config"

	gs "github.com/dmitrijs2005/adminconsole/internal/server/grpc"
)

// openPostgres is a test seam for postgres.Open.
var openPostgres = func(ctx context.Context, dsn string, migrate bool, l logging.Logger) (backend, error) {
	return postgres.Open(ctx, dsn, migrate, postgres.WithLogger(l))
}

// backend is a document store the app owns and must close.
type backend interface {
	docstore.Store
	Close() error
}

type memoryBackend struct {
	*memory.Store
}

func (m memoryBackend) Close() error {
	m.Store.Close()
	return nil
}

type App struct {
	config *config.Config
	logger logging.Logger
	store  backend
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, slog.LevelInfo)
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: c, logger: logger}

	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database DSN given, documents are kept in memory")
		app.store = memoryBackend{memory.New()}
		return app, nil
	}

	store, err := openPostgres(ctx, c.DatabaseDSN, c.RunMigrations, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.store = store

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.store, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or the server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "closing store", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
