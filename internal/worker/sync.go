package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wordduel/internal/config"
	"github.com/wordduel/internal/postgres"
	"github.com/wordduel/internal/redis"
)

// Sweeper settles sessions whose time budget has elapsed
type Sweeper interface {
	SweepExpired(ctx context.Context)
}

// MaintenanceWorker runs the periodic housekeeping cycle: expiring
// overdue sessions and rebuilding the Redis XP leaderboard from the
// authoritative progression table. Postgres is the source of truth; the
// sorted set is recoverable state.
type MaintenanceWorker struct {
	cache    *redis.Cache
	postgres *postgres.Repository
	sweeper  Sweeper
	config   *config.WorkerConfig
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewMaintenanceWorker creates a new maintenance worker
func NewMaintenanceWorker(
	cache *redis.Cache,
	postgres *postgres.Repository,
	sweeper Sweeper,
	cfg *config.WorkerConfig,
	logger *slog.Logger,
) *MaintenanceWorker {
	return &MaintenanceWorker{
		cache:    cache,
		postgres: postgres,
		sweeper:  sweeper,
		config:   cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background maintenance process
func (w *MaintenanceWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("maintenance worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background maintenance process
func (w *MaintenanceWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("maintenance worker stopped")
	return nil
}

// run is the main worker loop
func (w *MaintenanceWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

// runCycle executes one maintenance pass
func (w *MaintenanceWorker) runCycle(ctx context.Context) {
	startTime := time.Now()

	w.sweeper.SweepExpired(ctx)

	if err := w.RebuildLeaderboard(ctx); err != nil {
		w.logger.Error("leaderboard rebuild failed", "error", err)
	}

	w.logger.Debug("maintenance cycle completed", "duration", time.Since(startTime))
}

// RebuildLeaderboard repopulates the Redis XP sorted set from the
// progression table. Run at startup to recover after a cache flush.
func (w *MaintenanceWorker) RebuildLeaderboard(ctx context.Context) error {
	entries, err := w.postgres.TopByXP(ctx, w.config.LeaderboardSize)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		w.logger.Debug("no progression rows to sync")
		return nil
	}

	if err := w.cache.RebuildLeaderboard(ctx, entries); err != nil {
		return err
	}

	w.logger.Debug("leaderboard synced from database", "player_count", len(entries))
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *MaintenanceWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single maintenance cycle (useful for manual triggers)
func (w *MaintenanceWorker) RunOnce(ctx context.Context) {
	w.runCycle(ctx)
}
