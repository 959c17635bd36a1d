package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"subfuse/internal/subtitle"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Languages contains the source and target language tags for the bilingual
// pipeline. Tags are BCP 47 ("bg", "en", "pt-BR").
type Languages struct {
	Source string `toml:"source"`
	Target string `toml:"target"`
}

// Transcription contains configuration for the external speech-to-text
// engine that produces the raw per-pass tracks.
type Transcription struct {
	Binary         string `toml:"binary"`
	Model          string `toml:"model"`
	Device         string `toml:"device"`
	ComputeType    string `toml:"compute_type"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Chunking contains the cue re-segmentation settings. Durations are
// milliseconds.
type Chunking struct {
	MaxCharsPerLine  int     `toml:"max_chars_per_line"`
	CharsPerSecond   float64 `toml:"chars_per_second"`
	MinDurationMS    int     `toml:"min_duration_ms"`
	MaxDurationMS    int     `toml:"max_duration_ms"`
	MinGapMS         int     `toml:"min_gap_ms"`
	PauseThresholdMS int     `toml:"pause_threshold_ms"`
	ClockOffsetMS    int     `toml:"clock_offset_ms"`
}

// Merge contains the gap-merge tolerances. Durations are milliseconds.
type Merge struct {
	BoundaryToleranceMS        int `toml:"boundary_tolerance_ms"`
	BoundaryOverlapToleranceMS int `toml:"boundary_overlap_tolerance_ms"`
}

// Filter contains the degenerate-cue filter settings.
type Filter struct {
	Denylist []string `toml:"denylist"`
	Strict   bool     `toml:"strict"`
}

// Discovery contains configuration for finding media to process.
type Discovery struct {
	Dirs        []string `toml:"dirs"`
	Extensions  []string `toml:"extensions"`
	ExcludeDirs []string `toml:"exclude_dirs"`
	SkipSamples bool     `toml:"skip_samples"`
}

// Workflow contains configuration for daemon timing and intervals. Values
// are seconds.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for subfuse.
//
// Configuration sections by subsystem:
//   - Paths: working, output, and log directories
//   - Languages: source/target language tags
//   - Transcription: external speech-to-text engine settings
//   - Chunking: cue re-segmentation and timing model
//   - Merge: gap-merge tolerances between passes
//   - Filter: degenerate-cue denylist and strictness
//   - Discovery: media scan directories and filters
//   - Workflow: daemon polling intervals and timeouts
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Languages     Languages     `toml:"languages"`
	Transcription Transcription `toml:"transcription"`
	Chunking      Chunking      `toml:"chunking"`
	Merge         Merge         `toml:"merge"`
	Filter        Filter        `toml:"filter"`
	Discovery     Discovery     `toml:"discovery"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subfuse/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("subfuse.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// OutputDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

// QueueDatabasePath returns the location of the queue database inside the
// working directory.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.Paths.WorkDir, "subfuse.db")
}

// ChunkConfig translates the chunking section into engine settings.
func (c *Config) ChunkConfig() subtitle.ChunkConfig {
	return subtitle.ChunkConfig{
		MaxCharsPerLine: c.Chunking.MaxCharsPerLine,
		CharsPerSecond:  c.Chunking.CharsPerSecond,
		MinDuration:     time.Duration(c.Chunking.MinDurationMS) * time.Millisecond,
		MaxDuration:     time.Duration(c.Chunking.MaxDurationMS) * time.Millisecond,
		MinGap:          time.Duration(c.Chunking.MinGapMS) * time.Millisecond,
		PauseThreshold:  time.Duration(c.Chunking.PauseThresholdMS) * time.Millisecond,
		ClockOffset:     time.Duration(c.Chunking.ClockOffsetMS) * time.Millisecond,
	}
}

// MergeConfig translates the merge section into engine settings.
func (c *Config) MergeConfig() subtitle.MergeConfig {
	return subtitle.MergeConfig{
		BoundaryTolerance:        time.Duration(c.Merge.BoundaryToleranceMS) * time.Millisecond,
		BoundaryOverlapTolerance: time.Duration(c.Merge.BoundaryOverlapToleranceMS) * time.Millisecond,
	}
}

// FilterOptions translates the filter section into engine settings.
func (c *Config) FilterOptions() subtitle.FilterOptions {
	return subtitle.FilterOptions{
		Denylist: c.Filter.Denylist,
		Strict:   c.Filter.Strict,
	}
}

// TranscriptionTimeout returns the per-pass engine timeout.
func (c *Config) TranscriptionTimeout() time.Duration {
	return time.Duration(c.Transcription.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
