package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"subfuse/internal/logging"
	"subfuse/internal/queue"
)

// HeartbeatMonitor keeps in-flight items visibly alive and reclaims items
// whose worker died without rolling them back.
type HeartbeatMonitor struct {
	store    *queue.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// NewHeartbeatMonitor creates a monitor with the given beat interval and
// staleness timeout.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:    store,
		logger:   logging.NewComponentLogger(logger, "heartbeat"),
		interval: interval,
		timeout:  timeout,
	}
}

// ReclaimStale rolls items without a recent heartbeat back to their stage
// boundary so another run can pick them up.
func (h *HeartbeatMonitor) ReclaimStale(ctx context.Context) error {
	if h.timeout <= 0 {
		return nil
	}
	reclaimed, err := h.store.ResetStuckProcessing(ctx, h.timeout)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		h.logger.Info("reclaimed stale items", logging.Int64("count", reclaimed))
	}
	return nil
}

// Loop updates the heartbeat for one item until the context is cancelled.
func (h *HeartbeatMonitor) Loop(ctx context.Context, wg *sync.WaitGroup, itemID int64) {
	defer wg.Done()
	if h.interval <= 0 {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.Heartbeat(ctx, itemID); err != nil && !errors.Is(err, context.Canceled) {
				h.logger.Warn("heartbeat update failed",
					logging.Int64(logging.FieldItemID, itemID),
					logging.Error(err))
			}
		}
	}
}
