package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"subfuse/internal/config"
	"subfuse/internal/logging"
)

// settleDelay is how long the watcher waits after the last write event
// before announcing a file, so media still being copied in is not picked up
// half-written.
const settleDelay = 2 * time.Second

// Watcher reports new media files appearing under the configured library
// directories. Detection is event driven via inotify with a periodic rescan
// safety net for events the kernel drops.
type Watcher struct {
	scanner     *Scanner
	logger      *slog.Logger
	rescanEvery time.Duration
	settleAfter time.Duration
}

// NewWatcher creates a library watcher. rescanEvery bounds how stale the
// library view can get when filesystem events are missed; zero disables the
// periodic rescan.
func NewWatcher(cfg config.Discovery, logger *slog.Logger, rescanEvery time.Duration) *Watcher {
	return &Watcher{
		scanner:     NewScanner(cfg, logger),
		logger:      logging.NewComponentLogger(logger, "discovery"),
		rescanEvery: rescanEvery,
		settleAfter: settleDelay,
	}
}

// Run watches until the context is cancelled, invoking onFound for every
// eligible media path it sees. onFound must tolerate duplicates; the queue's
// unique source constraint makes repeated announcements harmless.
func (w *Watcher) Run(ctx context.Context, onFound func(path string)) error {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer notifier.Close()

	watched := 0
	for _, dir := range w.scanner.cfg.Dirs {
		root, err := config.ExpandPath(dir)
		if err != nil {
			return err
		}
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			w.logger.Warn("watch directory unavailable, skipping", logging.String("dir", dir))
			continue
		}
		if err := notifier.Add(root); err != nil {
			w.logger.Warn("watch registration failed", logging.String("dir", root), logging.Error(err))
			continue
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("no watchable directories configured")
	}

	// Initial sweep covers files that predate the watch.
	w.rescan(onFound)

	var rescanCh <-chan time.Time
	if w.rescanEvery > 0 {
		ticker := time.NewTicker(w.rescanEvery)
		defer ticker.Stop()
		rescanCh = ticker.C
	}

	pending := make(map[string]*time.Timer)
	defer func() {
		for _, timer := range pending {
			timer.Stop()
		}
	}()
	settled := make(chan string)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-notifier.Events:
			if !ok {
				return fmt.Errorf("watch event stream closed")
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if !w.scanner.excludedDir(info.Name()) {
					_ = notifier.Add(event.Name)
				}
				continue
			}
			if !w.scanner.Eligible(event.Name) {
				continue
			}
			path := event.Name
			if timer, ok := pending[path]; ok {
				timer.Reset(w.settleAfter)
				continue
			}
			pending[path] = time.AfterFunc(w.settleAfter, func() {
				select {
				case settled <- path:
				case <-ctx.Done():
				}
			})
		case path := <-settled:
			delete(pending, path)
			w.logger.Info("media discovered", logging.String(logging.FieldSource, path))
			onFound(path)
		case err, ok := <-notifier.Errors:
			if !ok {
				return fmt.Errorf("watch error stream closed")
			}
			w.logger.Warn("watch error", logging.Error(err))
		case <-rescanCh:
			w.rescan(onFound)
		}
	}
}

func (w *Watcher) rescan(onFound func(path string)) {
	paths, err := w.scanner.Scan()
	if err != nil {
		w.logger.Warn("rescan failed", logging.Error(err))
		return
	}
	for _, path := range paths {
		onFound(path)
	}
}
