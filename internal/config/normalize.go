package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeLanguages(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeChunking()
	c.normalizeMerge()
	if err := c.normalizeDiscovery(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLanguages() error {
	var err error
	if c.Languages.Source, err = normalizeLanguageTag(c.Languages.Source, defaultSourceLanguage); err != nil {
		return fmt.Errorf("languages.source: %w", err)
	}
	if c.Languages.Target, err = normalizeLanguageTag(c.Languages.Target, defaultTargetLanguage); err != nil {
		return fmt.Errorf("languages.target: %w", err)
	}
	return nil
}

// normalizeLanguageTag canonicalizes a BCP 47 tag through the language
// matcher, so "BG " and "bg" both come out as "bg".
func normalizeLanguageTag(raw, fallback string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = fallback
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid language tag %q: %w", trimmed, err)
	}
	return tag.String(), nil
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Binary = strings.TrimSpace(c.Transcription.Binary)
	if c.Transcription.Binary == "" {
		c.Transcription.Binary = defaultTranscriptionBinary
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultTranscriptionModel
	}
	c.Transcription.Device = strings.ToLower(strings.TrimSpace(c.Transcription.Device))
	if c.Transcription.Device == "" {
		c.Transcription.Device = defaultTranscriptionDevice
	}
	c.Transcription.ComputeType = strings.ToLower(strings.TrimSpace(c.Transcription.ComputeType))
	if c.Transcription.ComputeType == "" {
		c.Transcription.ComputeType = defaultTranscriptionCompute
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = defaultTranscriptionTimeout
	}
}

func (c *Config) normalizeChunking() {
	if c.Chunking.MaxCharsPerLine <= 0 {
		c.Chunking.MaxCharsPerLine = defaultMaxCharsPerLine
	}
	if c.Chunking.CharsPerSecond <= 0 {
		c.Chunking.CharsPerSecond = defaultCharsPerSecond
	}
	if c.Chunking.MinDurationMS <= 0 {
		c.Chunking.MinDurationMS = defaultMinDurationMS
	}
	if c.Chunking.MaxDurationMS <= 0 {
		c.Chunking.MaxDurationMS = defaultMaxDurationMS
	}
	if c.Chunking.MinGapMS < 0 {
		c.Chunking.MinGapMS = defaultMinGapMS
	}
	if c.Chunking.PauseThresholdMS < 0 {
		c.Chunking.PauseThresholdMS = 0
	}
}

func (c *Config) normalizeMerge() {
	if c.Merge.BoundaryToleranceMS < 0 {
		c.Merge.BoundaryToleranceMS = defaultBoundaryToleranceMS
	}
	if c.Merge.BoundaryOverlapToleranceMS < 0 {
		c.Merge.BoundaryOverlapToleranceMS = defaultBoundaryOverlapToleranceMS
	}
}

func (c *Config) normalizeDiscovery() error {
	dirs := make([]string, 0, len(c.Discovery.Dirs))
	for _, dir := range c.Discovery.Dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("discovery.dirs: %w", err)
		}
		dirs = append(dirs, expanded)
	}
	c.Discovery.Dirs = dirs

	if len(c.Discovery.Extensions) == 0 {
		c.Discovery.Extensions = defaultDiscoveryExtensions()
	} else {
		exts := make([]string, 0, len(c.Discovery.Extensions))
		seen := make(map[string]struct{}, len(c.Discovery.Extensions))
		for _, ext := range c.Discovery.Extensions {
			normalized := strings.ToLower(strings.TrimSpace(ext))
			if normalized == "" {
				continue
			}
			if !strings.HasPrefix(normalized, ".") {
				normalized = "." + normalized
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			exts = append(exts, normalized)
		}
		if len(exts) == 0 {
			exts = defaultDiscoveryExtensions()
		}
		c.Discovery.Extensions = exts
	}

	excludes := make([]string, 0, len(c.Discovery.ExcludeDirs))
	for _, dir := range c.Discovery.ExcludeDirs {
		trimmed := strings.TrimSpace(dir)
		if trimmed == "" {
			continue
		}
		excludes = append(excludes, filepath.Clean(trimmed))
	}
	c.Discovery.ExcludeDirs = excludes
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
