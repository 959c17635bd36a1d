package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"subfuse/internal/config"
	"subfuse/internal/logging"
	"subfuse/internal/queue"
	"subfuse/internal/services"
	"subfuse/internal/stage"
	"subfuse/internal/subtitle"
)

// Reconciler merges the raw per-pass tracks into one source-language track.
// The accurate pass anchors the merge; the other passes only contribute cues
// that fit cleanly inside its silence gaps.
type Reconciler struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	layout Layout
}

// NewReconciler creates the reconciliation stage.
func NewReconciler(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "reconciler"),
		layout: NewLayout(cfg),
	}
}

// Prepare verifies the anchor pass track exists.
func (r *Reconciler) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)

	anchor := r.layout.PassTrack(item.SourcePath, subtitle.PassAccurate)
	if _, err := os.Stat(anchor); err != nil {
		return services.Wrap(services.ErrValidation, "reconcile", "stat anchor track",
			"accurate pass track is missing; the item must be transcribed first", err)
	}

	item.ErrorMessage = ""
	item.SetProgress("reconcile", "Merging transcription passes", 0)
	logger.Info("reconciliation prepared", logging.String(logging.FieldTrack, anchor))
	return nil
}

// Execute merges the auxiliary passes into the accurate pass's gaps and writes
// the reconciled track.
func (r *Reconciler) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)

	outPath := r.layout.MergedTrack(item.SourcePath)
	if _, err := os.Stat(outPath); err == nil {
		logger.Info("merged track exists, skipping", logging.String(logging.FieldTrack, outPath))
		item.MergedFile = outPath
		item.SetProgress("reconcile", "Merged track already present", 100)
		return nil
	}

	merged, err := subtitle.ParseFile(r.layout.PassTrack(item.SourcePath, subtitle.PassAccurate))
	if err != nil {
		return services.Wrap(services.ErrValidation, "reconcile", "parse accurate track", "", err)
	}

	mergeCfg := r.cfg.MergeConfig()
	totalAdded := 0
	for _, pass := range subtitle.Passes()[1:] {
		trackPath := r.layout.PassTrack(item.SourcePath, pass)
		secondary, err := subtitle.ParseFile(trackPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.Warn("pass track missing, merging without it",
					logging.String(logging.FieldPass, pass))
				continue
			}
			return services.Wrap(services.ErrValidation, "reconcile", "parse "+pass+" track", "", err)
		}

		var added int
		merged, added = subtitle.MergeIntoGaps(merged, secondary, mergeCfg)
		totalAdded += added
		logger.Info("pass merged",
			logging.String(logging.FieldPass, pass),
			logging.Int("added", added))
	}

	if err := subtitle.WriteFile(outPath, merged); err != nil {
		return services.Wrap(services.ErrTransient, "reconcile", "write merged track", "", err)
	}

	item.MergedFile = outPath
	item.SetProgress("reconcile", fmt.Sprintf("Merged %d recovered cues", totalAdded), 100)
	logger.Info("merge complete",
		logging.Int(logging.FieldCueCount, len(merged)),
		logging.Int("added", totalAdded),
		logging.String(logging.FieldTrack, outPath))
	return nil
}

// HealthCheck verifies the stage has a usable working directory.
func (r *Reconciler) HealthCheck(ctx context.Context) stage.Health {
	const name = "reconciler"
	if r.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if _, err := os.Stat(r.cfg.Paths.WorkDir); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("working directory unavailable: %v", err))
	}
	return stage.Healthy(name)
}
