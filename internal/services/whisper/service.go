package whisper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"subfuse/internal/subtitle"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "large-v3"

// Config describes the external transcription engine.
type Config struct {
	Binary      string
	Model       string
	Device      string
	ComputeType string
	Timeout     time.Duration
}

// CommandRunner executes an external command. Tests substitute this to
// fabricate engine output without spawning processes.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service drives the speech-to-text engine and converts its JSON output into
// timed fragments.
type Service struct {
	cfg    Config
	runner CommandRunner
}

// NewService creates a transcription service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "whisperx"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	s.runner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Transcribe runs one pass of the engine over source and returns the raw
// timed fragments. outputDir receives the engine's JSON sidecar, which is
// left in place for inspection.
func (s *Service) Transcribe(ctx context.Context, source, outputDir, language, pass string) ([]subtitle.Fragment, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("transcribe: source path required")
	}
	params, err := passParams(pass)
	if err != nil {
		return nil, err
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	args := s.buildArgs(source, outputDir, language, params)
	if err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	jsonPath := OutputJSONPath(outputDir, source)
	fragments, err := ParseResultFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	return fragments, nil
}

func (s *Service) buildArgs(source, outputDir, language string, params engineParams) []string {
	args := []string{
		source,
		"--model", s.cfg.Model,
		"--output_format", "json",
		"--output_dir", outputDir,
		"--beam_size", strconv.Itoa(params.beamSize),
		"--temperature", strconv.FormatFloat(params.temperature, 'g', -1, 64),
	}
	if language != "" {
		args = append(args, "--language", language)
	}
	if s.cfg.Device != "" {
		args = append(args, "--device", s.cfg.Device)
	}
	if s.cfg.ComputeType != "" {
		args = append(args, "--compute_type", s.cfg.ComputeType)
	}
	if !params.conditionOnPrevious {
		args = append(args, "--condition_on_previous_text", "False")
	}
	if params.noSpeechThreshold > 0 {
		args = append(args, "--no_speech_threshold", strconv.FormatFloat(params.noSpeechThreshold, 'g', -1, 64))
	}
	return args
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.runner != nil {
		return s.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// OutputJSONPath is where the engine writes its JSON sidecar for a source.
func OutputJSONPath(outputDir, source string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(outputDir, stem+".json")
}
