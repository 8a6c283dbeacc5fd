// Package server wires the identity service together: it opens the database,
// applies migrations, builds the crypto and token services and runs the HTTP
// API next to the gRPC health endpoint until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophid/internal/cryptox"
	"github.com/dmitrijs2005/gophid/internal/logging"
	"github.com/dmitrijs2005/gophid/internal/server/auth"
	"github.com/dmitrijs2005/gophid/internal/server/config"
	gs "github.com/dmitrijs2005/gophid/internal/server/grpc"
	hs "github.com/dmitrijs2005/gophid/internal/server/http"
	"github.com/dmitrijs2005/gophid/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophid/internal/server/services"
	"golang.org/x/sync/errgroup"
)

// Test seams.
var (
	openDB         = repomanager.Open
	newRepoManager = func() repomanager.RepositoryManager { return repomanager.NewPostgresRepositoryManager() }
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *hs.Server
	health *gs.HealthServer
}

func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (*App, error) {
	logger := l.With("module", "app")

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := build(ctx, c, l, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	app.logger = logger
	return app, nil
}

func build(ctx context.Context, c *config.Config, l logging.Logger, db *sql.DB) (*App, error) {
	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, err
	}

	hasher, err := cryptox.NewHasher(c.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hasher: %w", err)
	}

	enc, err := cryptox.NewLookupEncryptor(c.EncryptionPassword, c.EncryptionIV)
	if err != nil {
		return nil, fmt.Errorf("lookup encryptor: %w", err)
	}

	tokens, err := auth.NewTokenService(c.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	us, err := services.NewUserService(db, rm, hasher, enc, tokens, l)
	if err != nil {
		return nil, err
	}

	httpServer := hs.NewServer(hs.Options{
		Address:         c.HTTPAddr,
		Prefix:          c.GlobalPrefix,
		ShutdownTimeout: c.ShutdownTimeout,
	}, us, tokens, db, l)

	return &App{
		config: c,
		db:     db,
		http:   httpServer,
		health: gs.NewHealthServer(c.HealthAddrGRPC, db, gs.DefaultProbeInterval, l),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled, a shutdown signal arrives or one of the
// servers fails. The database is closed on return.
func (app *App) Run(ctx context.Context) error {
	defer app.db.Close()

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.http.Run(ctx) })
	if app.config.HealthAddrGRPC != "" {
		g.Go(func() error { return app.health.Run(ctx) })
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}
