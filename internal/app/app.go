// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/api"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/cache"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/ingest"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/query"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/repository/postgres"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/scheduler"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/services/health"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/storage/volatile"
)

// Application holds all engine dependencies.
type Application struct {
	Config *Config
	Logger *logger.Logger
	DB     *postgres.DB
	Server *api.Server

	natsClient *ingest.Client
	subscriber *ingest.Subscriber
	sched      *scheduler.Scheduler
	coord      *health.Coordinator
}

// New wires every component from configuration. Live sources may be
// registered on the coordinator before Serve.
func New(cfg *Config) (*Application, error) {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	ctx := context.Background()
	db, err := postgres.Connect(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}

	durable := postgres.NewStore(db, log)
	vol := volatile.NewStore(cfg.Volatile, log)
	queries := query.NewManager(durable, vol, log)
	cacheMgr := cache.NewManager(cfg.Cache, log)
	coord := health.NewCoordinator(durable, vol, vol, queries, cacheMgr, nil, log)

	sched := scheduler.New(log)
	sched.Register(scheduler.NewRetentionJob(durable, cfg.Scheduler.RetentionInterval))
	sched.Register(scheduler.NewVolatileSweepJob(vol, cfg.Scheduler.VolatileInterval))
	sched.Register(scheduler.NewCacheSweepJob(cacheMgr, cfg.Scheduler.CacheInterval))

	app := &Application{
		Config: cfg,
		Logger: log,
		DB:     db,
		Server: api.NewServer(cfg.Server, coord, Version, log),
		sched:  sched,
		coord:  coord,
	}

	if cfg.NATS.Enabled {
		client, err := ingest.Connect(cfg.NATS.ClientConfig(), log)
		if err != nil {
			db.Close()
			return nil, err
		}
		app.natsClient = client
		app.subscriber = ingest.NewSubscriber(client, coord, log)
	}

	return app, nil
}

// Coordinator exposes the fusion coordinator for source registration.
func (a *Application) Coordinator() *health.Coordinator {
	return a.coord
}

// Run starts every component and blocks until SIGINT or SIGTERM.
func Run(cfgFile string) error {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	app, err := New(cfg)
	if err != nil {
		return err
	}
	defer app.Logger.Sync()

	if err := app.DB.Migrate(context.Background()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return app.Serve()
}

// Serve starts the scheduler, the ingest subscriber and the HTTP server,
// then waits for a shutdown signal.
func (a *Application) Serve() error {
	a.sched.Start(context.Background())
	if a.subscriber != nil {
		if err := a.subscriber.Start(); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.Logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			a.Logger.Error("http server failed", "error", err)
			a.shutdown()
			return err
		}
	}

	a.shutdown()
	return nil
}

// shutdown stops components in reverse dependency order.
func (a *Application) shutdown() {
	if err := a.Server.Shutdown(context.Background()); err != nil {
		a.Logger.Warn("http shutdown incomplete", "error", err)
	}
	if a.subscriber != nil {
		a.subscriber.Stop()
	}
	if a.natsClient != nil {
		a.natsClient.Close()
	}
	a.sched.Stop()
	a.coord.Shutdown()
	a.DB.Close()
	a.Logger.Info("shutdown complete")
}

// RunMigrations applies or rolls back database migrations.
func RunMigrations(cfgFile, direction string) error {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()
	db, err := postgres.Connect(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	switch {
	case direction == "up":
		return db.Migrate(ctx)
	case direction == "status":
		return db.MigrationStatus(ctx)
	case strings.HasPrefix(direction, "down:"):
		steps, err := strconv.Atoi(strings.TrimPrefix(direction, "down:"))
		if err != nil || steps < 1 {
			return fmt.Errorf("invalid rollback steps: %s", direction)
		}
		return db.MigrateDown(ctx, steps)
	default:
		return fmt.Errorf("unknown migration direction: %s", direction)
	}
}
