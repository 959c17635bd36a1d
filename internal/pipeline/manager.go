package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"subfuse/internal/config"
	"subfuse/internal/logging"
	"subfuse/internal/queue"
	"subfuse/internal/services"
	"subfuse/internal/stage"
	"subfuse/internal/stages"
)

// binding ties one stage handler to its slice of the item lifecycle.
type binding struct {
	name       string
	entry      queue.Status
	processing queue.Status
	done       queue.Status
	handler    stage.Handler
}

// Manager drives queue items through the stage sequence: it polls for the
// oldest actionable item, runs the stage for its status, and persists the
// resulting transition. A single worker loop processes one item at a time.
type Manager struct {
	cfg           *config.Config
	store         *queue.Store
	logger        *slog.Logger
	pollInterval  time.Duration
	retryInterval time.Duration
	heartbeat     *HeartbeatMonitor
	bindings      []binding

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a manager with the real stage handlers.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithHandlers(cfg, store, logger,
		stages.NewTranscriber(cfg, store, logger),
		stages.NewReconciler(cfg, store, logger),
		stages.NewCleaner(cfg, store, logger),
		stages.NewZipper(cfg, store, logger),
	)
}

// NewManagerWithHandlers constructs a manager with injected handlers (used in
// tests).
func NewManagerWithHandlers(cfg *config.Config, store *queue.Store, logger *slog.Logger, transcriber, reconciler, cleaner, zipper stage.Handler) *Manager {
	return &Manager{
		cfg:           cfg,
		store:         store,
		logger:        logging.NewComponentLogger(logger, "pipeline"),
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		bindings: []binding{
			{name: "transcribe", entry: queue.StatusPending, processing: queue.StatusTranscribing, done: queue.StatusTranscribed, handler: transcriber},
			{name: "reconcile", entry: queue.StatusTranscribed, processing: queue.StatusReconciling, done: queue.StatusReconciled, handler: reconciler},
			{name: "clean", entry: queue.StatusReconciled, processing: queue.StatusCleaning, done: queue.StatusCleaned, handler: cleaner},
			{name: "zip", entry: queue.StatusCleaned, processing: queue.StatusZipping, done: queue.StatusCompleted, handler: zipper},
		},
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("pipeline already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the worker to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether the worker loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastError returns the most recent processing error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Health reports readiness of every stage handler.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, len(m.bindings))
	for _, b := range m.bindings {
		checks = append(checks, b.handler.HealthCheck(ctx))
	}
	return checks
}

// ProcessNext handles at most one actionable queue item and reports whether
// one was found. This is the single-step entry the CLI uses for one-shot
// processing; the daemon loop calls it continuously.
func (m *Manager) ProcessNext(ctx context.Context) (bool, error) {
	statuses := make([]queue.Status, 0, len(m.bindings))
	for _, b := range m.bindings {
		statuses = append(statuses, b.entry)
	}
	item, err := m.store.NextForStatuses(ctx, statuses...)
	if err != nil {
		return false, fmt.Errorf("fetch next item: %w", err)
	}
	if item == nil {
		return false, nil
	}
	return true, m.processItem(ctx, item)
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStale(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn("stale item reclaim failed", logging.Error(err))
		}

		worked, err := m.ProcessNext(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			m.setLastError(err)
			m.sleep(ctx, m.retryInterval)
		case !worked:
			m.sleep(ctx, m.pollInterval)
		}
	}
}

func (m *Manager) processItem(ctx context.Context, item *queue.Item) error {
	b, ok := m.bindingForStatus(item.Status)
	if !ok {
		return fmt.Errorf("no stage bound to status %s", item.Status)
	}

	requestID := uuid.NewString()
	stageCtx := services.WithStage(ctx, b.name)
	stageCtx = services.WithItemID(stageCtx, item.ID)
	stageCtx = services.WithSource(stageCtx, item.SourcePath)
	logger := logging.WithContext(stageCtx, m.logger).With(logging.String("request_id", requestID))

	now := time.Now().UTC()
	item.Status = b.processing
	item.LastHeartbeat = &now
	if err := m.store.Update(stageCtx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}

	start := time.Now()
	logger.Info("stage started", logging.String("status", string(b.processing)))

	if err := b.handler.Prepare(stageCtx, item); err != nil {
		m.handleStageFailure(stageCtx, logger, b, item, err)
		return err
	}
	if err := m.store.Update(stageCtx, item); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}

	execErr := m.executeWithHeartbeat(stageCtx, b.handler, item)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			logger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(stageCtx, logger, b, item, execErr)
		return execErr
	}

	item.Status = b.done
	item.LastHeartbeat = nil
	if err := m.store.Update(stageCtx, item); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	logger.Info("stage completed",
		logging.String("next_status", string(item.Status)),
		logging.Duration("stage_duration", time.Since(start)))
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, item *queue.Item) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.Loop(hbCtx, &hbWG, item.ID)

	execErr := handler.Execute(ctx, item)
	hbCancel()
	hbWG.Wait()
	return execErr
}

// handleStageFailure classifies a stage error: retryable failures roll the
// item back to the stage boundary so the poller picks it up again; the rest
// fail the item for operator attention.
func (m *Manager) handleStageFailure(ctx context.Context, logger *slog.Logger, b binding, item *queue.Item, stageErr error) {
	m.setLastError(stageErr)

	if services.Retryable(stageErr) {
		if rollback, ok := queue.RollbackStatus(item.Status); ok {
			item.Status = rollback
		} else {
			item.Status = b.entry
		}
		item.ErrorMessage = stageErr.Error()
		item.LastHeartbeat = nil
		logger.Warn("stage failed, will retry",
			logging.String("retry_status", string(item.Status)),
			logging.Error(stageErr))
	} else {
		item.SetFailed(stageErr.Error())
		logger.Error("stage failed", logging.Error(stageErr))
	}

	if err := m.store.Update(ctx, item); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}
}

func (m *Manager) bindingForStatus(status queue.Status) (binding, bool) {
	for _, b := range m.bindings {
		if b.entry == status {
			return b, true
		}
	}
	return binding{}, false
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
