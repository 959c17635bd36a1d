package whisper

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subfuse/internal/subtitle"
)

const sampleResult = `{
  "segments": [
    {"start": 1.0, "end": 2.5, "text": " Здравей, как си? ",
     "words": [
       {"word": "Здравей,", "start": 1.0, "end": 1.6},
       {"word": "как", "start": 1.7, "end": 1.9},
       {"word": "си?", "start": 2.0, "end": 2.5}
     ]},
    {"start": 5.0, "end": 4.0, "text": "inverted timing"},
    {"start": 6.0, "end": 7.0, "text": "   "}
  ]
}`

func TestParseResult(t *testing.T) {
	fragments, err := ParseResult([]byte(sampleResult))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(fragments))
	}
	frag := fragments[0]
	if frag.Text != "Здравей, как си?" {
		t.Fatalf("unexpected text: %q", frag.Text)
	}
	if frag.Start != time.Second || frag.End != 2500*time.Millisecond {
		t.Fatalf("unexpected timing: %+v", frag)
	}
	if len(frag.Words) != 3 || frag.Words[2].Text != "си?" {
		t.Fatalf("unexpected words: %+v", frag.Words)
	}
}

func TestParseResultRejectsGarbage(t *testing.T) {
	if _, err := ParseResult([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestTranscribeRunsEngineAndParsesOutput(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "episode01.wav")

	svc := NewService(Config{Model: "large-v3", Device: "cpu", ComputeType: "int8"})

	var gotName string
	var gotArgs []string
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return os.WriteFile(OutputJSONPath(dir, source), []byte(sampleResult), 0o644)
	})

	fragments, err := svc.Transcribe(context.Background(), source, dir, "bg", subtitle.PassAccurate)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(fragments))
	}
	if gotName != "whisperx" {
		t.Fatalf("unexpected binary: %q", gotName)
	}
	assertArgPair(t, gotArgs, "--model", "large-v3")
	assertArgPair(t, gotArgs, "--language", "bg")
	assertArgPair(t, gotArgs, "--beam_size", "5")
	assertArgPair(t, gotArgs, "--temperature", "0")
}

func TestTranscribeCoveragePassLoosensDecoder(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "clip.wav")

	svc := NewService(Config{})
	var gotArgs []string
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		return os.WriteFile(OutputJSONPath(dir, source), []byte(`{"segments":[]}`), 0o644)
	})

	if _, err := svc.Transcribe(context.Background(), source, dir, "bg", subtitle.PassCoverage); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	assertArgPair(t, gotArgs, "--condition_on_previous_text", "False")
	assertArgPair(t, gotArgs, "--no_speech_threshold", "0.8")
}

func TestTranscribeRejectsUnknownPass(t *testing.T) {
	svc := NewService(Config{})
	if _, err := svc.Transcribe(context.Background(), "in.wav", t.TempDir(), "bg", "fast"); err == nil {
		t.Fatal("expected error for unknown pass")
	}
}

func TestTranscribeRequiresSource(t *testing.T) {
	svc := NewService(Config{})
	if _, err := svc.Transcribe(context.Background(), " ", t.TempDir(), "bg", subtitle.PassAccurate); err == nil {
		t.Fatal("expected error for empty source")
	}
}

func assertArgPair(t *testing.T, args []string, flag, value string) {
	t.Helper()
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			if args[i+1] != value {
				t.Fatalf("%s = %q, want %q (args %v)", flag, args[i+1], value, args)
			}
			return
		}
	}
	t.Fatalf("flag %s missing from args %v", flag, args)
}
