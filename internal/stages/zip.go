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

// Zipper pairs the clean source-language track with its translated
// counterpart and writes the bilingual result to the output directory. The
// translated track is produced by an external translator working off the
// clean track, so the stage waits (retryably) until it appears.
type Zipper struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	layout Layout
}

// NewZipper creates the bilingual assembly stage.
func NewZipper(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Zipper {
	return &Zipper{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "zipper"),
		layout: NewLayout(cfg),
	}
}

// Prepare verifies the clean track exists and the output directory is usable.
func (z *Zipper) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, z.logger)

	clean := z.cleanPath(item)
	if _, err := os.Stat(clean); err != nil {
		return services.Wrap(services.ErrValidation, "zip", "stat clean track",
			"clean track is missing; the item must be cleaned first", err)
	}
	if err := os.MkdirAll(z.cfg.Paths.OutputDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "zip", "create output dir",
			"check that the output directory is writable", err)
	}

	item.ErrorMessage = ""
	item.SetProgress("zip", "Assembling bilingual track", 0)
	logger.Info("zip prepared", logging.String(logging.FieldTrack, clean))
	return nil
}

// Execute zips the aligned track pair into the final bilingual file.
func (z *Zipper) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, z.logger)

	outPath := z.layout.BilingualTrack(item.SourcePath)
	if _, err := os.Stat(outPath); err == nil {
		logger.Info("bilingual track exists, skipping", logging.String(logging.FieldTrack, outPath))
		item.FinalFile = outPath
		item.SetProgress("zip", "Bilingual track already present", 100)
		return nil
	}

	translated := z.layout.TranslatedTrack(item.SourcePath)
	if _, err := os.Stat(translated); err != nil {
		return services.Wrap(services.ErrTransient, "zip", "locate translated track",
			fmt.Sprintf("waiting for the translator to deliver %s", translated), err)
	}

	primary, err := subtitle.ParseFile(z.cleanPath(item))
	if err != nil {
		return services.Wrap(services.ErrValidation, "zip", "parse clean track", "", err)
	}
	secondary, err := subtitle.ParseFile(translated)
	if err != nil {
		return services.Wrap(services.ErrValidation, "zip", "parse translated track", "", err)
	}

	bilingual, err := subtitle.Zip(primary, secondary)
	if err != nil {
		return services.Wrap(services.ErrValidation, "zip", "align tracks",
			"translated track no longer matches the clean track; re-run translation", err)
	}

	if err := subtitle.WriteFile(outPath, bilingual); err != nil {
		return services.Wrap(services.ErrTransient, "zip", "write bilingual track", "", err)
	}

	item.FinalFile = outPath
	item.SetProgress("zip", "Bilingual track written", 100)
	logger.Info("zip complete",
		logging.Int(logging.FieldCueCount, len(bilingual)),
		logging.String(logging.FieldTrack, outPath))
	return nil
}

// HealthCheck verifies the output directory can be created.
func (z *Zipper) HealthCheck(ctx context.Context) stage.Health {
	const name = "zipper"
	if z.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if err := os.MkdirAll(z.cfg.Paths.OutputDir, 0o755); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("output directory unavailable: %v", err))
	}
	return stage.Healthy(name)
}

func (z *Zipper) cleanPath(item *queue.Item) string {
	if item.CleanFile != "" {
		return item.CleanFile
	}
	return z.layout.CleanTrack(item.SourcePath)
}
