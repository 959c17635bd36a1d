package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subfuse/internal/config"
	"subfuse/internal/logging"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestScanFindsEligibleMedia(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "show", "episode01.mkv"))
	writeFile(t, filepath.Join(root, "show", "episode01.srt"))
	writeFile(t, filepath.Join(root, "show", "sample.mkv"))
	writeFile(t, filepath.Join(root, "extras", "bonus.mp4"))
	writeFile(t, filepath.Join(root, ".hidden.mkv"))

	cfg := config.Default().Discovery
	cfg.Dirs = []string{root}
	cfg.ExcludeDirs = []string{"extras"}

	scanner := NewScanner(cfg, logging.NewNop())
	found, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 match, got %v", found)
	}
	if filepath.Base(found[0]) != "episode01.mkv" {
		t.Fatalf("unexpected match: %s", found[0])
	}
}

func TestScanSkipsMissingDirectories(t *testing.T) {
	cfg := config.Default().Discovery
	cfg.Dirs = []string{"/nonexistent/library"}

	found, err := NewScanner(cfg, logging.NewNop()).Scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("expected no matches, got %v", found)
	}
}

func TestEligible(t *testing.T) {
	cfg := config.Default().Discovery
	cfg.ExcludeDirs = []string{"extras"}
	scanner := NewScanner(cfg, logging.NewNop())

	cases := []struct {
		path string
		want bool
	}{
		{"/media/show/episode01.mkv", true},
		{"/media/show/episode01.MKV", true},
		{"/media/show/notes.txt", false},
		{"/media/show/sample.mkv", false},
		{"/media/show/movie-sample.mp4", false},
		{"/media/extras/bonus.mkv", false},
		{"/media/show/.partial.mkv", false},
		{"/media/audio/track.flac", true},
	}
	for _, tc := range cases {
		if got := scanner.Eligible(tc.path); got != tc.want {
			t.Errorf("Eligible(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestEligibleKeepsSamplesWhenConfigured(t *testing.T) {
	cfg := config.Default().Discovery
	cfg.SkipSamples = false
	scanner := NewScanner(cfg, logging.NewNop())
	if !scanner.Eligible("/media/show/sample.mkv") {
		t.Fatal("samples must be eligible when skip_samples is off")
	}
}

func TestWatcherAnnouncesExistingFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "episode01.mkv"))

	cfg := config.Default().Discovery
	cfg.Dirs = []string{root}

	watcher := NewWatcher(cfg, logging.NewNop(), 0)
	watcher.settleAfter = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	found := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- watcher.Run(ctx, func(path string) { found <- path })
	}()

	select {
	case path := <-found:
		if filepath.Base(path) != "episode01.mkv" {
			t.Fatalf("unexpected discovery: %s", path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for initial sweep")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatcherSeesNewFiles(t *testing.T) {
	root := t.TempDir()

	cfg := config.Default().Discovery
	cfg.Dirs = []string{root}

	watcher := NewWatcher(cfg, logging.NewNop(), 0)
	watcher.settleAfter = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	found := make(chan string, 8)
	go func() { _ = watcher.Run(ctx, func(path string) { found <- path }) }()

	// Give the watch registration a moment before creating the file.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(root, "episode02.mkv"))

	select {
	case path := <-found:
		if filepath.Base(path) != "episode02.mkv" {
			t.Fatalf("unexpected discovery: %s", path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for new file event")
	}
}

func TestWatcherRequiresWatchableDirectory(t *testing.T) {
	cfg := config.Default().Discovery
	cfg.Dirs = []string{"/nonexistent/library"}

	watcher := NewWatcher(cfg, logging.NewNop(), 0)
	if err := watcher.Run(context.Background(), func(string) {}); err == nil {
		t.Fatal("expected error with no watchable directories")
	}
}
