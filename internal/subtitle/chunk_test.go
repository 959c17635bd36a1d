package subtitle

import (
	"testing"
	"time"
)

func chunkTestConfig() ChunkConfig {
	cfg := DefaultChunkConfig()
	cfg.PauseThreshold = 0
	return cfg
}

func TestChunkMergesShortFragmentsUntilPunctuation(t *testing.T) {
	frags := []Fragment{
		{Text: "Здравей", Start: 0, End: 500 * time.Millisecond},
		{Text: "как си", Start: 600 * time.Millisecond, End: 1100 * time.Millisecond},
		{Text: "днес?", Start: 1200 * time.Millisecond, End: 1500 * time.Millisecond},
		{Text: "Добре съм.", Start: 5 * time.Second, End: 6 * time.Second},
	}

	track := Chunk(frags, chunkTestConfig())
	if len(track) != 2 {
		t.Fatalf("expected 2 cues, got %d: %+v", len(track), track)
	}
	if track[0].Text != "Здравей как си днес?" {
		t.Fatalf("unexpected buffer join: %q", track[0].Text)
	}
	if track[0].Start != 0 {
		t.Fatalf("first cue should start at first fragment, got %v", track[0].Start)
	}
	if track[1].Text != "Добре съм." {
		t.Fatalf("unexpected second cue: %q", track[1].Text)
	}
	if track[0].Index != 1 || track[1].Index != 2 {
		t.Fatalf("expected contiguous indices, got %+v", track)
	}
}

func TestChunkFlushesOnLength(t *testing.T) {
	cfg := chunkTestConfig()
	cfg.MaxCharsPerLine = 10

	frags := []Fragment{
		{Text: "one two three", Start: 0, End: time.Second},
		{Text: "four", Start: 1100 * time.Millisecond, End: 1400 * time.Millisecond},
	}
	track := Chunk(frags, cfg)
	if len(track) != 2 {
		t.Fatalf("expected length flush to split, got %d cues", len(track))
	}
	if track[0].Text != "one two three" {
		t.Fatalf("unexpected first cue: %q", track[0].Text)
	}
}

func TestChunkSkipsEmptyFragments(t *testing.T) {
	frags := []Fragment{
		{Text: "   ", Start: 0, End: time.Second},
		{Text: "Реплика.", Start: 2 * time.Second, End: 3 * time.Second},
	}
	track := Chunk(frags, chunkTestConfig())
	if len(track) != 1 {
		t.Fatalf("expected 1 cue, got %d", len(track))
	}
	if track[0].Start != 2*time.Second {
		t.Fatalf("buffer start should skip blank fragment, got %v", track[0].Start)
	}
}

func TestChunkRespectsDurationBounds(t *testing.T) {
	cfg := chunkTestConfig()
	frags := []Fragment{
		{Text: "Да.", Start: 0, End: 100 * time.Millisecond},
		{Text: "Втора реплика следва тук.", Start: 10 * time.Second, End: 11 * time.Second},
	}
	track := Chunk(frags, cfg)
	if len(track) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(track))
	}
	// All but the tail obey the duration bounds even with linger applied.
	for _, cue := range track[:len(track)-1] {
		if cue.Duration() < cfg.MinDuration {
			t.Fatalf("cue under min duration: %+v", cue)
		}
		if cue.Duration() > cfg.MaxDuration {
			t.Fatalf("cue over max duration: %+v", cue)
		}
	}
}

func TestChunkLingerStopsShortOfNextCue(t *testing.T) {
	cfg := chunkTestConfig()
	cfg.MaxDuration = 10 * time.Second // keep the ceiling out of the way

	frags := []Fragment{
		{Text: "Кратко.", Start: 0, End: 400 * time.Millisecond},
		{Text: "Следваща реплика.", Start: 1200 * time.Millisecond, End: 2 * time.Second},
	}
	track := Chunk(frags, cfg)
	if len(track) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(track))
	}
	first := track[0]
	if first.End <= 400*time.Millisecond {
		t.Fatalf("expected linger into the gap, got end %v", first.End)
	}
	if limit := frags[1].Start - cfg.MinGap; first.End > limit {
		t.Fatalf("linger crossed into next cue: end %v > %v", first.End, limit)
	}
	if gap := track[1].Start - first.End; gap < cfg.MinGap {
		t.Fatalf("min gap violated: %v", gap)
	}
}

func TestChunkMinGapShiftsCueForward(t *testing.T) {
	cfg := chunkTestConfig()
	frags := []Fragment{
		{Text: "Първа реплика е готова.", Start: 0, End: 1900 * time.Millisecond},
		{Text: "Втора идва веднага.", Start: 1910 * time.Millisecond, End: 3 * time.Second},
	}
	track := Chunk(frags, cfg)
	if len(track) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(track))
	}
	if gap := track[1].Start - track[0].End; gap < cfg.MinGap {
		t.Fatalf("expected min gap enforced, got %v", gap)
	}
	if track[1].End-track[1].Start <= 0 {
		t.Fatalf("shift must preserve duration: %+v", track[1])
	}
}

func TestChunkTerminalLinger(t *testing.T) {
	cfg := chunkTestConfig()
	frags := []Fragment{
		{Text: "последни думи", Start: 0, End: time.Second},
	}
	track := Chunk(frags, cfg)
	if len(track) != 1 {
		t.Fatalf("expected 1 cue, got %d", len(track))
	}
	// Tail cue lingers past the last fragment end, capped at 3 seconds.
	if track[0].End <= time.Second {
		t.Fatalf("expected terminal linger, got end %v", track[0].End)
	}
	if track[0].End > time.Second+tailLingerCap {
		t.Fatalf("terminal linger over cap: %v", track[0].End)
	}
}

func TestChunkSplitsAtWordPauses(t *testing.T) {
	cfg := chunkTestConfig()
	cfg.PauseThreshold = 200 * time.Millisecond

	frags := []Fragment{
		{
			Text:  "чакай малко идвам веднага",
			Start: 0,
			End:   4 * time.Second,
			Words: []Word{
				{Text: "чакай", Start: 0, End: 400 * time.Millisecond},
				{Text: "малко", Start: 500 * time.Millisecond, End: 900 * time.Millisecond},
				{Text: "идвам", Start: 3 * time.Second, End: 3400 * time.Millisecond},
				{Text: "веднага", Start: 3500 * time.Millisecond, End: 4 * time.Second},
			},
		},
	}
	track := Chunk(frags, cfg)
	if len(track) != 2 {
		t.Fatalf("expected pause split into 2 cues, got %d: %+v", len(track), track)
	}
	if track[0].Text != "чакай малко" || track[1].Text != "идвам веднага" {
		t.Fatalf("unexpected split texts: %q / %q", track[0].Text, track[1].Text)
	}
	if track[1].Start != 3*time.Second {
		t.Fatalf("second cue should start at the pause boundary, got %v", track[1].Start)
	}
}

func TestChunkClockOffset(t *testing.T) {
	cfg := chunkTestConfig()
	cfg.ClockOffset = 500 * time.Millisecond

	frags := []Fragment{{Text: "Реплика.", Start: time.Second, End: 2 * time.Second}}
	track := Chunk(frags, cfg)
	if track[0].Start != 1500*time.Millisecond {
		t.Fatalf("expected offset start, got %v", track[0].Start)
	}
}

func TestChunkNegativeOffsetClampsAtZero(t *testing.T) {
	cfg := chunkTestConfig()
	cfg.ClockOffset = -2 * time.Second

	frags := []Fragment{{Text: "Реплика.", Start: time.Second, End: 2 * time.Second}}
	track := Chunk(frags, cfg)
	if track[0].Start != 0 {
		t.Fatalf("expected start clamped at zero, got %v", track[0].Start)
	}
	if track[0].End <= track[0].Start {
		t.Fatalf("clamp must preserve a positive duration: %+v", track[0])
	}
}

func TestChunkEmitsNonDecreasingStarts(t *testing.T) {
	frags := []Fragment{
		{Text: "Едно.", Start: 0, End: 500 * time.Millisecond},
		{Text: "Две.", Start: time.Second, End: 1500 * time.Millisecond},
		{Text: "Три.", Start: 2 * time.Second, End: 2500 * time.Millisecond},
		{Text: "Четири.", Start: 3 * time.Second, End: 3500 * time.Millisecond},
	}
	track := Chunk(frags, chunkTestConfig())
	for i := 1; i < len(track); i++ {
		if track[i].Start < track[i-1].Start {
			t.Fatalf("starts must be non-decreasing: %+v", track)
		}
		if track[i].Start < track[i-1].End {
			t.Fatalf("cues must not overlap: %+v", track)
		}
	}
	if sentences := len(track); sentences != 4 {
		t.Fatalf("sentence punctuation should flush each fragment, got %d cues", sentences)
	}
}
