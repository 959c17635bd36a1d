package subtitle

import (
	"errors"
	"fmt"
)

var (
	// ErrCountMismatch reports bilingual inputs with different cue counts.
	ErrCountMismatch = errors.New("cue count mismatch")
	// ErrAlignmentMismatch reports a cue pair whose index or timing differs.
	ErrAlignmentMismatch = errors.New("cue alignment mismatch")
)

// Zip combines two count-and-timing-aligned tracks into one bilingual track:
// each output cue carries the primary text with the secondary text on the
// following line. The inputs must have been produced by the same
// normalization over time-aligned translations, so any index or timing
// difference is an error; no fuzzy realignment is attempted and no partial
// result is returned on failure.
func Zip(primary, secondary Track) (Track, error) {
	if len(primary) != len(secondary) {
		return nil, fmt.Errorf("%w: %d vs %d cues", ErrCountMismatch, len(primary), len(secondary))
	}

	out := make(Track, 0, len(primary))
	for i := range primary {
		p, s := primary[i], secondary[i]
		if p.Index != s.Index {
			return nil, fmt.Errorf("%w: pair %d has indices %d and %d", ErrAlignmentMismatch, i+1, p.Index, s.Index)
		}
		if p.Start != s.Start || p.End != s.End {
			return nil, fmt.Errorf("%w: cue %d timing %s-%s vs %s-%s",
				ErrAlignmentMismatch, p.Index,
				FormatTimestamp(p.Start), FormatTimestamp(p.End),
				FormatTimestamp(s.Start), FormatTimestamp(s.End))
		}
		out = append(out, Cue{
			Index: p.Index,
			Start: p.Start,
			End:   p.End,
			Text:  joinBilingual(p.Text, s.Text),
		})
	}
	return out, nil
}

func joinBilingual(primary, secondary string) string {
	switch {
	case primary == "":
		return secondary
	case secondary == "":
		return primary
	default:
		return primary + "\n" + secondary
	}
}
