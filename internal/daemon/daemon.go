package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"subfuse/internal/config"
	"subfuse/internal/discovery"
	"subfuse/internal/logging"
	"subfuse/internal/pipeline"
	"subfuse/internal/queue"
)

// rescanInterval bounds how long a missed filesystem event can hide new
// media from the daemon.
const rescanInterval = 5 * time.Minute

// Daemon ties the library watcher, the queue, and the pipeline manager into
// one lifecycle, with flock-based locking so only one instance processes a
// given working directory.
type Daemon struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	manager  *pipeline.Manager
	watcher  *discovery.Watcher
	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status describes daemon runtime state.
type Status struct {
	Running      bool
	QueueDBPath  string
	LockFilePath string
	Queue        queue.HealthSummary
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, manager *pipeline.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || manager == nil {
		return nil, errors.New("daemon requires config, store, logger, and pipeline manager")
	}
	lockPath := filepath.Join(cfg.Paths.WorkDir, "subfuse.lock")
	return &Daemon{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		manager:  manager,
		watcher:  discovery.NewWatcher(cfg.Discovery, logger, rescanInterval),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, rolls interrupted items back to their
// stage boundaries, and launches the watcher and pipeline loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another subfuse daemon instance is already running")
	}

	reset, err := d.store.ResetProcessing(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reset interrupted items: %w", err)
	}
	if reset > 0 {
		d.logger.Info("rolled back interrupted items", logging.Int64("count", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.manager.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start pipeline: %w", err)
	}
	d.cancel = cancel

	if len(d.cfg.Discovery.Dirs) > 0 {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.watcher.Run(runCtx, func(path string) { d.enqueue(runCtx, path) }); err != nil &&
				!errors.Is(err, context.Canceled) {
				d.logger.Error("library watcher stopped", logging.Error(err))
			}
		}()
	} else {
		d.logger.Info("no discovery directories configured, watcher disabled")
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		logging.CleanupOldLogs(d.logger, d.cfg.Paths.LogDir, "*.log", d.cfg.Logging.RetentionDays)
	}()

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.manager.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Status reports daemon and queue state.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	health, err := d.store.Health(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:      d.running.Load(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		Queue:        health,
	}, nil
}

// enqueue adds a discovered media path to the queue, ignoring paths that are
// already queued.
func (d *Daemon) enqueue(ctx context.Context, path string) {
	existing, err := d.store.GetBySourcePath(ctx, path)
	if err != nil {
		d.logger.Warn("queue lookup failed", logging.String(logging.FieldSource, path), logging.Error(err))
		return
	}
	if existing != nil {
		return
	}
	item, err := d.store.NewItem(ctx, path)
	if err != nil {
		d.logger.Warn("enqueue failed", logging.String(logging.FieldSource, path), logging.Error(err))
		return
	}
	d.logger.Info("media queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldSource, path))
}
