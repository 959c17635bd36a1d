package stages

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"subfuse/internal/config"
	"subfuse/internal/logging"
	"subfuse/internal/queue"
	"subfuse/internal/services"
	"subfuse/internal/services/whisper"
	"subfuse/internal/stage"
	"subfuse/internal/subtitle"
)

// Engine abstracts the speech-to-text service so tests can fabricate
// fragments without an installed binary.
type Engine interface {
	Transcribe(ctx context.Context, source, outputDir, language, pass string) ([]subtitle.Fragment, error)
	Model() string
}

// Transcriber runs every transcription pass over a source item and writes one
// track per pass. Passes whose track already exists on disk are skipped, so
// an interrupted item resumes where it stopped.
type Transcriber struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	engine Engine
	layout Layout
}

// NewTranscriber creates the transcription stage with the real engine.
func NewTranscriber(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Transcriber {
	engine := whisper.NewService(whisper.Config{
		Binary:      cfg.Transcription.Binary,
		Model:       cfg.Transcription.Model,
		Device:      cfg.Transcription.Device,
		ComputeType: cfg.Transcription.ComputeType,
		Timeout:     cfg.TranscriptionTimeout(),
	})
	return NewTranscriberWithDependencies(cfg, store, logger, engine)
}

// NewTranscriberWithDependencies creates the stage with an injected engine.
func NewTranscriberWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, engine Engine) *Transcriber {
	return &Transcriber{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "transcriber"),
		engine: engine,
		layout: NewLayout(cfg),
	}
}

// Prepare verifies the source media exists and sets up the working directory.
func (t *Transcriber) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)

	if _, err := os.Stat(item.SourcePath); err != nil {
		return services.Wrap(services.ErrValidation, "transcribe", "stat source",
			"source media is missing; re-scan the library before retrying", err)
	}
	if err := os.MkdirAll(t.layout.ItemDir(item.SourcePath), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "transcribe", "create work dir",
			"check that the working directory is writable", err)
	}

	item.ErrorMessage = ""
	item.SetProgress("transcribe", "Starting transcription passes", 0)
	logger.Info("transcription prepared",
		logging.String(logging.FieldSource, item.SourcePath),
		logging.String("model", t.engine.Model()),
		logging.String(logging.FieldLanguage, t.cfg.Languages.Source))
	return nil
}

// Execute runs each pass in precedence order, writing the track for any pass
// that has not produced one yet.
func (t *Transcriber) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)
	passes := subtitle.Passes()
	itemDir := t.layout.ItemDir(item.SourcePath)

	// The clock offset is applied once, in the cleaning stage, so the raw
	// pass tracks stay aligned with the engine's timeline.
	chunkCfg := t.cfg.ChunkConfig()
	chunkCfg.ClockOffset = 0

	for i, pass := range passes {
		trackPath := t.layout.PassTrack(item.SourcePath, pass)
		if _, err := os.Stat(trackPath); err == nil {
			logger.Info("pass track exists, skipping",
				logging.String(logging.FieldPass, pass),
				logging.String(logging.FieldTrack, trackPath))
			continue
		}

		item.SetProgress("transcribe", fmt.Sprintf("Running %s pass", pass),
			float64(i)/float64(len(passes))*100)
		if err := t.store.Update(ctx, item); err != nil {
			return services.Wrap(services.ErrTransient, "transcribe", "update progress", "", err)
		}

		fragments, err := t.engine.Transcribe(ctx, item.SourcePath, itemDir, t.cfg.Languages.Source, pass)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "transcribe", pass+" pass",
				"check that the transcription engine is installed and the model is available", err)
		}

		track := subtitle.Chunk(fragments, chunkCfg)
		if err := subtitle.WriteFile(trackPath, track); err != nil {
			return services.Wrap(services.ErrTransient, "transcribe", "write pass track", "", err)
		}
		if err := t.store.Heartbeat(ctx, item.ID); err != nil {
			logger.Warn("heartbeat update failed", logging.Error(err))
		}

		logger.Info("pass complete",
			logging.String(logging.FieldPass, pass),
			logging.Int(logging.FieldCueCount, len(track)),
			logging.String(logging.FieldTrack, trackPath))
	}

	item.SetProgress("transcribe", "All passes complete", 100)
	return nil
}

// HealthCheck verifies the engine binary and working directory are usable.
func (t *Transcriber) HealthCheck(ctx context.Context) stage.Health {
	const name = "transcriber"
	if t.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if t.cfg.Languages.Source == "" {
		return stage.Unhealthy(name, "source language not configured")
	}
	if _, err := exec.LookPath(t.cfg.Transcription.Binary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("engine binary %q not found in PATH", t.cfg.Transcription.Binary))
	}
	if err := os.MkdirAll(t.cfg.Paths.WorkDir, 0o755); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("working directory unavailable: %v", err))
	}
	return stage.Healthy(name)
}
