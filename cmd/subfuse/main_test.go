package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subfuse/internal/subtitle"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	content := fmt.Sprintf(`[paths]
work_dir = %q
output_dir = %q
log_dir = %q

[logging]
format = "console"
level = "error"
`,
		filepath.Join(base, "work"),
		filepath.Join(base, "out"),
		filepath.Join(base, "logs"),
	)
	path := filepath.Join(base, "subfuse.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTrack(t *testing.T, path string, track subtitle.Track) {
	t.Helper()
	if err := subtitle.WriteFile(path, track); err != nil {
		t.Fatalf("write track: %v", err)
	}
}

func TestChunkCommandReadsEngineResult(t *testing.T) {
	cfgPath := writeTestConfig(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "episode.json")
	result := `{"segments": [
		{"start": 0.0, "end": 1.5, "text": "Здравей."},
		{"start": 4.0, "end": 5.5, "text": "Как си?"}
	]}`
	if err := os.WriteFile(input, []byte(result), 0o644); err != nil {
		t.Fatalf("write result: %v", err)
	}

	out, err := runCommand(t, "--config", cfgPath, "chunk", input)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if !strings.Contains(out, "Chunked 2 fragments") {
		t.Fatalf("unexpected output: %q", out)
	}

	chunked, err := subtitle.ParseFile(filepath.Join(dir, "episode.chunked.srt"))
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(chunked) != 2 || chunked[0].Text != "Здравей." {
		t.Fatalf("unexpected chunked track: %+v", chunked)
	}
}

func TestCleanCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "episode.srt")
	writeTrack(t, input, subtitle.Track{
		{Index: 1, Start: 0, End: 1500 * time.Millisecond, Text: "Истинска реплика."},
		{Index: 2, Start: 2 * time.Second, End: 3 * time.Second, Text: "ха ха ха ха"},
	})

	out, err := runCommand(t, "--config", cfgPath, "clean", input)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if !strings.Contains(out, "down to 1") {
		t.Fatalf("unexpected output: %q", out)
	}

	cleaned, err := subtitle.ParseFile(filepath.Join(dir, "episode.clean.srt"))
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(cleaned) != 1 || cleaned[0].Text != "Истинска реплика." {
		t.Fatalf("unexpected cleaned track: %+v", cleaned)
	}
}

func TestMergeCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)
	dir := t.TempDir()
	primary := filepath.Join(dir, "primary.srt")
	secondary := filepath.Join(dir, "secondary.srt")
	writeTrack(t, primary, subtitle.Track{
		{Index: 1, Start: 0, End: 2 * time.Second, Text: "първа"},
		{Index: 2, Start: 10 * time.Second, End: 12 * time.Second, Text: "втора"},
	})
	writeTrack(t, secondary, subtitle.Track{
		{Index: 1, Start: 4 * time.Second, End: 6 * time.Second, Text: "запълнена"},
	})

	out, err := runCommand(t, "--config", cfgPath, "merge", primary, secondary)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if !strings.Contains(out, "Merged 1 recovered") {
		t.Fatalf("unexpected output: %q", out)
	}

	merged, err := subtitle.ParseFile(filepath.Join(dir, "primary.merged.srt"))
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("expected 3 cues, got %+v", merged)
	}
}

func TestZipCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)
	dir := t.TempDir()
	primary := filepath.Join(dir, "bg.srt")
	secondary := filepath.Join(dir, "en.srt")
	writeTrack(t, primary, subtitle.Track{
		{Index: 1, Start: 0, End: time.Second, Text: "Здравей"},
	})
	writeTrack(t, secondary, subtitle.Track{
		{Index: 1, Start: 0, End: time.Second, Text: "Hello"},
	})

	output := filepath.Join(dir, "both.srt")
	if _, err := runCommand(t, "--config", cfgPath, "zip", primary, secondary, "-o", output); err != nil {
		t.Fatalf("zip: %v", err)
	}

	bilingual, err := subtitle.ParseFile(output)
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(bilingual) != 1 || bilingual[0].Text != "Здравей\nHello" {
		t.Fatalf("unexpected bilingual track: %+v", bilingual)
	}
}

func TestZipCommandRejectsMisalignedTracks(t *testing.T) {
	cfgPath := writeTestConfig(t)
	dir := t.TempDir()
	primary := filepath.Join(dir, "bg.srt")
	secondary := filepath.Join(dir, "en.srt")
	writeTrack(t, primary, subtitle.Track{
		{Index: 1, Start: 0, End: time.Second, Text: "Здравей"},
	})
	writeTrack(t, secondary, subtitle.Track{
		{Index: 1, Start: 0, End: time.Second, Text: "Hello"},
		{Index: 2, Start: 2 * time.Second, End: 3 * time.Second, Text: "World"},
	})

	if _, err := runCommand(t, "--config", cfgPath, "zip", primary, secondary); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestQueueListEmpty(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "Queue is empty") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestScanCommandQueuesMedia(t *testing.T) {
	cfgPath := writeTestConfig(t)
	library := t.TempDir()
	if err := os.WriteFile(filepath.Join(library, "episode.mkv"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}

	out, err := runCommand(t, "--config", cfgPath, "scan", library)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !strings.Contains(out, "queued 1 new") {
		t.Fatalf("unexpected output: %q", out)
	}

	// A second scan finds the same file but queues nothing.
	out, err = runCommand(t, "--config", cfgPath, "scan", library)
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if !strings.Contains(out, "queued 0 new") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected overwrite refusal")
	}
}
