// Package server wires configuration, storage, key material and the HTTP API
// into a runnable application and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/tasktracker/internal/cryptox"
	"github.com/dmitrijs2005/tasktracker/internal/logging"
	"github.com/dmitrijs2005/tasktracker/internal/observability"
	"github.com/dmitrijs2005/tasktracker/internal/server/api"
	"github.com/dmitrijs2005/tasktracker/internal/server/auth"
	"github.com/dmitrijs2005/tasktracker/internal/server/config"
	"github.com/dmitrijs2005/tasktracker/internal/server/keys"
	"github.com/dmitrijs2005/tasktracker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tasktracker/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	metrics     *observability.Metrics
	userService *services.UserService
	taskService *services.TaskService
	codec       *auth.TokenCodec
}

// openDB is a seam for tests.
var openDB = repomanager.Open

// NewApp loads key material, opens the database, applies migrations when
// configured and builds the services. Key material problems are fatal: the
// server never starts without a usable signing pair.
func NewApp(ctx context.Context, c *config.Config, out io.Writer) (*App, error) {
	logger, err := logging.New(c.LogLevel, c.LogFormat, out)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	km, err := keys.Load(ctx, c.PrivateKeyPath, c.PublicKeyPath, c.TokenLifetime, keys.S3Options{
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("key material error: %w", err)
	}

	db, err := openDB(ctx, c.DatabaseDSN, repomanager.PoolOptions{
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxIdleTime: c.DBConnMaxIdleTime,
		ConnectTimeout:  c.DBConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if c.MigrateOnStart {
		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
		logger.Info(ctx, "Migrations applied")
	}

	hasher := cryptox.NewHasher(c.HashWorkers, cryptox.DefaultParams)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		metrics:     observability.New(),
		userService: services.NewUserService(db, rm, hasher, km.Lifetime(), logger),
		taskService: services.NewTaskService(db, rm, logger),
		codec:       auth.NewTokenCodec(km, auth.WithClockSkew(c.ClockSkew)),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := api.NewHTTPServer(app.config.HTTPAddr, api.Options{
		ReadTimeout:     app.config.ReadTimeout,
		WriteTimeout:    app.config.WriteTimeout,
		ShutdownTimeout: app.config.ShutdownTimeout,
	}, app.logger, app.metrics, app.userService, app.taskService, app.codec)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM/SIGQUIT arrives, then
// closes the database pool.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
