package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Languages.Source != "bg" || cfg.Languages.Target != "en" {
		t.Fatalf("unexpected default languages: %+v", cfg.Languages)
	}
	if cfg.Chunking.MaxCharsPerLine != 40 {
		t.Fatalf("unexpected default chunking: %+v", cfg.Chunking)
	}
	if !filepath.IsAbs(cfg.Paths.WorkDir) {
		t.Fatalf("work dir not expanded: %q", cfg.Paths.WorkDir)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[languages]
source = "uk"
target = "de"

[chunking]
max_chars_per_line = 32
chars_per_second = 18.0

[merge]
boundary_tolerance_ms = 50
`)
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected %q loaded, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Languages.Source != "uk" || cfg.Languages.Target != "de" {
		t.Fatalf("unexpected languages: %+v", cfg.Languages)
	}
	if cfg.Chunking.MaxCharsPerLine != 32 {
		t.Fatalf("override lost: %+v", cfg.Chunking)
	}
	if cfg.Chunking.MinDurationMS != 300 {
		t.Fatalf("unset keys must keep defaults: %+v", cfg.Chunking)
	}
	if cfg.Merge.BoundaryToleranceMS != 50 {
		t.Fatalf("merge override lost: %+v", cfg.Merge)
	}
}

func TestLoadCanonicalizesLanguageTags(t *testing.T) {
	path := writeConfig(t, `
[languages]
source = " BG "
target = "EN"
`)
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Languages.Source != "bg" || cfg.Languages.Target != "en" {
		t.Fatalf("tags not canonicalized: %+v", cfg.Languages)
	}
}

func TestLoadRejectsInvalidLanguageTag(t *testing.T) {
	path := writeConfig(t, `
[languages]
source = "not a language"
`)
	_, _, _, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "languages.source") {
		t.Fatalf("expected language tag error, got %v", err)
	}
}

func TestLoadRejectsEqualSourceAndTarget(t *testing.T) {
	path := writeConfig(t, `
[languages]
source = "en"
target = "en"
`)
	_, _, _, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("expected language conflict error, got %v", err)
	}
}

func TestLoadNormalizesExtensions(t *testing.T) {
	path := writeConfig(t, `
[discovery]
extensions = ["MKV", ".mp4", "mp4", " "]
`)
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{".mkv", ".mp4"}
	if len(cfg.Discovery.Extensions) != len(want) {
		t.Fatalf("unexpected extensions: %v", cfg.Discovery.Extensions)
	}
	for i, ext := range want {
		if cfg.Discovery.Extensions[i] != ext {
			t.Fatalf("unexpected extensions: %v", cfg.Discovery.Extensions)
		}
	}
}

func TestLoadRejectsBadWorkflow(t *testing.T) {
	path := writeConfig(t, `
[workflow]
heartbeat_interval = 30
heartbeat_timeout = 10
`)
	_, _, _, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "heartbeat_timeout") {
		t.Fatalf("expected workflow validation error, got %v", err)
	}
}

func TestChunkConfigTranslation(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	chunk := cfg.ChunkConfig()
	if chunk.MinDuration != 300*time.Millisecond {
		t.Fatalf("unexpected min duration: %v", chunk.MinDuration)
	}
	if chunk.MaxDuration != 2*time.Second {
		t.Fatalf("unexpected max duration: %v", chunk.MaxDuration)
	}
	merge := cfg.MergeConfig()
	if merge.BoundaryTolerance != 100*time.Millisecond || merge.BoundaryOverlapTolerance != 200*time.Millisecond {
		t.Fatalf("unexpected merge tolerances: %+v", merge)
	}
}

func TestQueueDatabasePath(t *testing.T) {
	cfg := Default()
	cfg.Paths.WorkDir = "/tmp/subfuse-test"
	if got := cfg.QueueDatabasePath(); got != "/tmp/subfuse-test/subfuse.db" {
		t.Fatalf("unexpected database path: %q", got)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("sample must load cleanly: %v", err)
	}
	if !exists {
		t.Fatal("sample file should exist")
	}
	if cfg.Languages.Source != "bg" {
		t.Fatalf("unexpected sample languages: %+v", cfg.Languages)
	}
}
