package whisper

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"subfuse/internal/subtitle"
)

type resultFile struct {
	Segments []resultSegment `json:"segments"`
}

type resultSegment struct {
	Start float64      `json:"start"`
	End   float64      `json:"end"`
	Text  string       `json:"text"`
	Words []resultWord `json:"words"`
}

type resultWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ParseResultFile reads the engine's JSON sidecar and converts its segments
// into timed fragments. Segments with no text or inverted timing are dropped;
// words missing timing are dropped from their fragment but their text stays
// in the fragment body.
func ParseResultFile(path string) ([]subtitle.Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read engine output: %w", err)
	}
	return ParseResult(data)
}

// ParseResult converts raw engine JSON into fragments.
func ParseResult(data []byte) ([]subtitle.Fragment, error) {
	var parsed resultFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode engine output: %w", err)
	}

	fragments := make([]subtitle.Fragment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" || seg.End <= seg.Start {
			continue
		}
		frag := subtitle.Fragment{
			Text:  text,
			Start: secondsToDuration(seg.Start),
			End:   secondsToDuration(seg.End),
		}
		for _, w := range seg.Words {
			word := strings.TrimSpace(w.Word)
			if word == "" || w.End <= w.Start {
				continue
			}
			frag.Words = append(frag.Words, subtitle.Word{
				Text:  word,
				Start: secondsToDuration(w.Start),
				End:   secondsToDuration(w.End),
			})
		}
		fragments = append(fragments, frag)
	}
	return fragments, nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds*1000) * time.Millisecond
}
