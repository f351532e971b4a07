// Package app wires the store, report service, and cloud sync from config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gps-report/internal/cloudsync"
	"gps-report/internal/config"
	"gps-report/internal/db"
	"gps-report/internal/report"
	"gps-report/internal/store"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// App holds the fully-wired application. Scheduler is nil when no sync
// schedule is configured; Syncer is always set and reports sync as
// unavailable when no backend is configured.
type App struct {
	Store     *store.Store
	Cache     *report.Cache
	Reports   *report.Service
	Syncer    *cloudsync.Syncer
	Scheduler *cloudsync.Scheduler
}

// New migrates the store file and wires every component from deps.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	if err := db.Migrate(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", cfg.DBPath, err)
	}

	st := store.New(cfg.DBPath, logger.With("component", "store"))
	cache := report.NewCache()
	reports := report.NewService(st, cfg.MetricsPath, cache, logger.With("component", "report"))

	remote, err := cloudsync.New(ctx, cfg.Sync, logger.With("component", "cloudsync"))
	if err != nil {
		return nil, fmt.Errorf("sync backend %s: %w", cfg.Sync.Backend, err)
	}
	syncer := cloudsync.NewSyncer(remote, st, cfg.Sync.RemoteDir, logger.With("component", "syncer"))
	syncer.OnPull(reports.Invalidate)

	a := &App{Store: st, Cache: cache, Reports: reports, Syncer: syncer}
	if remote != nil {
		logger.Info("cloud sync enabled", "backend", remote.Backend(), "remote_dir", cfg.Sync.RemoteDir)
		if cfg.Sync.Schedule != "" {
			a.Scheduler = cloudsync.NewScheduler(syncer, cfg.Sync.Schedule, logger.With("component", "sync-scheduler"))
		}
	}
	return a, nil
}

// Start starts background jobs.
func (a *App) Start(ctx context.Context) error {
	if a.Scheduler == nil {
		return nil
	}
	return a.Scheduler.Start(ctx)
}

// Stop stops background jobs, waiting for a running scheduled push.
func (a *App) Stop() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
}
