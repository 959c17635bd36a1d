package subtitle

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Word is a single transcribed word with engine timing.
type Word struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Fragment is one raw piece of transcription output: a phrase or segment with
// a time span and, when the engine provides it, per-word timing.
type Fragment struct {
	Text  string
	Start time.Duration
	End   time.Duration
	Words []Word
}

// ChunkConfig controls cue segmentation and timing.
type ChunkConfig struct {
	// MaxCharsPerLine flushes the buffer once it grows to this many runes.
	MaxCharsPerLine int
	// CharsPerSecond is the reading-speed model for dynamic durations.
	CharsPerSecond float64
	// MinDuration and MaxDuration bound each cue's on-screen time.
	MinDuration time.Duration
	MaxDuration time.Duration
	// MinGap is the spacing enforced between consecutive cues.
	MinGap time.Duration
	// PauseThreshold splits fragments at word gaps longer than this, when
	// word timing is available. Zero disables pause splitting.
	PauseThreshold time.Duration
	// ClockOffset shifts every emitted cue as a final pass.
	ClockOffset time.Duration
}

// DefaultChunkConfig mirrors the display settings the pipeline ships with.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxCharsPerLine: 40,
		CharsPerSecond:  15,
		MinDuration:     300 * time.Millisecond,
		MaxDuration:     2 * time.Second,
		MinGap:          100 * time.Millisecond,
		PauseThreshold:  200 * time.Millisecond,
	}
}

const (
	// lingerTrigger is the silence after a flushed cue that earns extra
	// display time.
	lingerTrigger = 300 * time.Millisecond
	// lingerSafety keeps the linger from consuming the whole gap.
	lingerSafety = 50 * time.Millisecond
	// lingerCap bounds mid-track linger.
	lingerCap = 2 * time.Second
	// tailLingerCap bounds the terminal linger on the final cue.
	tailLingerCap = 3 * time.Second
)

// Chunk re-segments raw transcription fragments into display-safe cues using
// a buffer-and-flush sweep. Emission order is non-decreasing in start time
// and the result is reindexed 1..N.
func Chunk(fragments []Fragment, cfg ChunkConfig) Track {
	if cfg.MaxCharsPerLine <= 0 {
		cfg.MaxCharsPerLine = DefaultChunkConfig().MaxCharsPerLine
	}
	if cfg.CharsPerSecond <= 0 {
		cfg.CharsPerSecond = DefaultChunkConfig().CharsPerSecond
	}

	frags := splitAtPauses(fragments, cfg.PauseThreshold)

	var (
		out       Track
		buf       strings.Builder
		bufRunes  int
		bufStart  time.Duration
		lastEnd   time.Duration
		buffering bool
	)

	reset := func() {
		buf.Reset()
		bufRunes = 0
		buffering = false
	}

	for i, frag := range frags {
		text := strings.TrimSpace(frag.Text)
		if text == "" {
			continue
		}

		// A silence longer than the pause threshold ends the current cue
		// before this fragment joins the buffer.
		if buffering && cfg.PauseThreshold > 0 && frag.Start-lastEnd > cfg.PauseThreshold {
			cue := buildCue(buf.String(), bufRunes, bufStart, lastEnd, frag.Start, true, cfg)
			out = appendWithSpacing(out, cue, cfg.MinGap)
			reset()
		}

		if !buffering {
			bufStart = frag.Start
			lastEnd = frag.End
			buffering = true
		} else if frag.End > lastEnd {
			lastEnd = frag.End
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
			bufRunes++
		}
		buf.WriteString(text)
		bufRunes += utf8.RuneCountInString(text)

		flush := bufRunes >= cfg.MaxCharsPerLine ||
			endsSentence(text) ||
			(cfg.MaxDuration > 0 && lastEnd-bufStart >= cfg.MaxDuration)
		if !flush {
			continue
		}

		nextStart, hasNext := nextFragmentStart(frags, i+1)
		cue := buildCue(buf.String(), bufRunes, bufStart, lastEnd, nextStart, hasNext, cfg)
		out = appendWithSpacing(out, cue, cfg.MinGap)
		reset()
	}

	if buffering && buf.Len() > 0 {
		cue := buildTailCue(buf.String(), bufRunes, bufStart, lastEnd, cfg)
		out = appendWithSpacing(out, cue, cfg.MinGap)
	}

	if cfg.ClockOffset != 0 {
		for i := range out {
			out[i].Start += cfg.ClockOffset
			out[i].End += cfg.ClockOffset
			if out[i].Start < 0 {
				out[i].End -= out[i].Start
				out[i].Start = 0
			}
		}
	}

	out.Reindex()
	return out
}

// buildCue computes the flushed cue's timing: reading time stretched over the
// actual speech, a linger into trailing silence, and a hard clamp short of
// the next fragment.
func buildCue(text string, runes int, start, lastEnd, nextStart time.Duration, hasNext bool, cfg ChunkConfig) Cue {
	end := start + readingTime(runes, cfg)
	if lastEnd > end {
		end = lastEnd
	}

	if hasNext {
		gap := nextStart - lastEnd
		if gap > lingerTrigger {
			linger := gap - lingerSafety
			if linger > lingerCap {
				linger = lingerCap
			}
			end += linger
		}
		// The linger never pushes past the duration ceiling unless the
		// speech itself already did.
		if ceiling := start + cfg.MaxDuration; cfg.MaxDuration > 0 && end > ceiling && lastEnd <= ceiling {
			end = ceiling
		}
		if bound := nextStart - cfg.MinGap; end > bound {
			end = bound
		}
	}

	if end <= start {
		end = start + cfg.MinDuration
	}
	return Cue{Start: start, End: end, Text: text}
}

// buildTailCue flushes the final buffer with a larger terminal linger; there
// is no following cue to avoid.
func buildTailCue(text string, runes int, start, lastEnd time.Duration, cfg ChunkConfig) Cue {
	reading := readingTime(runes, cfg)
	linger := reading + 2*time.Second
	if linger > tailLingerCap {
		linger = tailLingerCap
	}
	end := lastEnd + linger
	if minEnd := start + reading; end < minEnd {
		end = minEnd
	}
	return Cue{Start: start, End: end, Text: text}
}

// appendWithSpacing enforces the minimum gap to the previously emitted cue by
// shifting the new cue forward by the deficit.
func appendWithSpacing(out Track, cue Cue, minGap time.Duration) Track {
	if n := len(out); n > 0 {
		if deficit := minGap - (cue.Start - out[n-1].End); deficit > 0 {
			cue.Start += deficit
			cue.End += deficit
		}
	}
	return append(out, cue)
}

// readingTime converts buffer length into display time via the reading-speed
// model, clamped to the configured duration bounds.
func readingTime(runes int, cfg ChunkConfig) time.Duration {
	seconds := float64(runes) / cfg.CharsPerSecond
	d := time.Duration(seconds * float64(time.Second))
	if d < cfg.MinDuration {
		d = cfg.MinDuration
	}
	if cfg.MaxDuration > 0 && d > cfg.MaxDuration {
		d = cfg.MaxDuration
	}
	return d
}

func endsSentence(text string) bool {
	return strings.HasSuffix(text, ".") ||
		strings.HasSuffix(text, "?") ||
		strings.HasSuffix(text, "!") ||
		strings.HasSuffix(text, "…")
}

// nextFragmentStart finds the start of the next fragment carrying text.
func nextFragmentStart(frags []Fragment, from int) (time.Duration, bool) {
	for i := from; i < len(frags); i++ {
		if strings.TrimSpace(frags[i].Text) != "" {
			return frags[i].Start, true
		}
	}
	return 0, false
}

// splitAtPauses explodes fragments with word timing into sub-fragments at
// word gaps longer than the pause threshold, so the flush loop breaks cues at
// natural silences.
func splitAtPauses(fragments []Fragment, threshold time.Duration) []Fragment {
	if threshold <= 0 {
		return fragments
	}
	var out []Fragment
	for _, frag := range fragments {
		if len(frag.Words) < 2 {
			out = append(out, frag)
			continue
		}
		run := []Word{frag.Words[0]}
		for _, word := range frag.Words[1:] {
			if word.Start-run[len(run)-1].End > threshold {
				out = append(out, wordsFragment(run))
				run = run[:0]
			}
			run = append(run, word)
		}
		if len(run) > 0 {
			out = append(out, wordsFragment(run))
		}
	}
	return out
}

func wordsFragment(words []Word) Fragment {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if t := strings.TrimSpace(w.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return Fragment{
		Text:  strings.Join(parts, " "),
		Start: words[0].Start,
		End:   words[len(words)-1].End,
	}
}
