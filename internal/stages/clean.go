package stages

import (
	"context"
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

// Cleaner filters hallucinated and junk cues out of the merged track and
// re-segments the survivors into display-safe cues. The clean track is what
// gets handed to the external translator.
type Cleaner struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	filter *subtitle.Filter
	layout Layout
}

// NewCleaner creates the cleaning stage.
func NewCleaner(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "cleaner"),
		filter: subtitle.NewFilter(cfg.FilterOptions()),
		layout: NewLayout(cfg),
	}
}

// Prepare verifies the merged track exists.
func (c *Cleaner) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, c.logger)

	merged := c.mergedPath(item)
	if _, err := os.Stat(merged); err != nil {
		return services.Wrap(services.ErrValidation, "clean", "stat merged track",
			"merged track is missing; the item must be reconciled first", err)
	}

	item.ErrorMessage = ""
	item.SetProgress("clean", "Filtering and re-segmenting", 0)
	logger.Info("cleaning prepared", logging.String(logging.FieldTrack, merged))
	return nil
}

// Execute filters the merged track and chunks the remaining text.
func (c *Cleaner) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, c.logger)

	outPath := c.layout.CleanTrack(item.SourcePath)
	if _, err := os.Stat(outPath); err == nil {
		logger.Info("clean track exists, skipping", logging.String(logging.FieldTrack, outPath))
		item.CleanFile = outPath
		item.SetProgress("clean", "Clean track already present", 100)
		return nil
	}

	merged, err := subtitle.ParseFile(c.mergedPath(item))
	if err != nil {
		return services.Wrap(services.ErrValidation, "clean", "parse merged track", "", err)
	}

	filtered := c.filter.Clean(merged)
	dropped := len(merged) - len(filtered)

	clean := subtitle.Chunk(cuesToFragments(filtered), c.cfg.ChunkConfig())

	if err := subtitle.WriteFile(outPath, clean); err != nil {
		return services.Wrap(services.ErrTransient, "clean", "write clean track", "", err)
	}

	item.CleanFile = outPath
	item.SetProgress("clean", fmt.Sprintf("Dropped %d junk cues", dropped), 100)
	logger.Info("clean complete",
		logging.Int(logging.FieldCueCount, len(clean)),
		logging.Int("dropped", dropped),
		logging.String(logging.FieldTrack, outPath))
	return nil
}

// HealthCheck verifies the stage has a usable working directory.
func (c *Cleaner) HealthCheck(ctx context.Context) stage.Health {
	const name = "cleaner"
	if c.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if _, err := os.Stat(c.cfg.Paths.WorkDir); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("working directory unavailable: %v", err))
	}
	return stage.Healthy(name)
}

func (c *Cleaner) mergedPath(item *queue.Item) string {
	if item.MergedFile != "" {
		return item.MergedFile
	}
	return c.layout.MergedTrack(item.SourcePath)
}

// cuesToFragments feeds already-timed cues back through the chunker. Word
// timing is gone at this point, so pause splitting applies between cues
// rather than inside them.
func cuesToFragments(track subtitle.Track) []subtitle.Fragment {
	fragments := make([]subtitle.Fragment, 0, len(track))
	for _, cue := range track {
		fragments = append(fragments, subtitle.Fragment{
			Text:  cue.Text,
			Start: cue.Start,
			End:   cue.End,
		})
	}
	return fragments
}
