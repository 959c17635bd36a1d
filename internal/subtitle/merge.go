package subtitle

import (
	"time"
)

// MergeConfig controls how permissively secondary cues are accepted into
// primary gaps.
type MergeConfig struct {
	// BoundaryTolerance shrinks every gap on both sides before candidates
	// are considered, so near-touching cues do not slip in.
	BoundaryTolerance time.Duration
	// BoundaryOverlapTolerance admits candidates that poke over a gap
	// boundary by less than this much per side, absorbing a few
	// milliseconds of timing noise between passes.
	BoundaryOverlapTolerance time.Duration
}

// DefaultMergeConfig returns the stock merge tolerances.
func DefaultMergeConfig() MergeConfig {
	return MergeConfig{
		BoundaryTolerance:        100 * time.Millisecond,
		BoundaryOverlapTolerance: 200 * time.Millisecond,
	}
}

// MergeIntoGaps fills silence in the primary track with non-conflicting cues
// from a secondary transcription pass. Gaps are processed chronologically and
// each secondary cue is claimed at most once (earliest fit wins). The region
// after the primary's last cue counts as an open-ended gap so tail coverage
// from longer passes is not lost. The merged track is sorted and reindexed;
// the second return value is the number of cues accepted.
//
// The operation never fails: an empty primary yields the normalized
// secondary, and re-merging cues that are already present adds nothing
// because they no longer fit cleanly into any remaining gap.
func MergeIntoGaps(primary, secondary Track, cfg MergeConfig) (Track, int) {
	secondary = secondary.Normalized()
	if len(primary) == 0 {
		return secondary, len(secondary)
	}

	base := primary.Normalized()
	used := make([]bool, len(secondary))
	var accepted Track

	j := 0 // sweep pointer into secondary; both sides are sorted
	for i := range base {
		gapStart := base[i].End + cfg.BoundaryTolerance
		var gapEnd time.Duration
		openEnded := i+1 >= len(base)
		if !openEnded {
			gapEnd = base[i+1].Start - cfg.BoundaryTolerance
			if gapEnd <= gapStart {
				continue
			}
		}

		// Skip candidates that ended before this gap; gaps only move
		// forward, so the pointer never has to back up.
		for j < len(secondary) && secondary[j].End <= gapStart {
			j++
		}

		for k := j; k < len(secondary); k++ {
			if used[k] {
				continue
			}
			cand := secondary[k]
			if !openEnded && cand.Start >= gapEnd {
				break
			}
			if fitsGap(cand, gapStart, gapEnd, openEnded, cfg.BoundaryOverlapTolerance) {
				used[k] = true
				accepted = append(accepted, cand)
			}
		}
	}

	merged := append(base, accepted...)
	merged.Sort()
	merged.Reindex()
	return merged, len(accepted)
}

// fitsGap accepts a candidate that lies fully inside the shrunk gap, or one
// whose overshoot past either boundary stays under the overlap tolerance.
func fitsGap(cand Cue, gapStart, gapEnd time.Duration, openEnded bool, overlapTol time.Duration) bool {
	startOK := cand.Start >= gapStart
	endOK := openEnded || cand.End <= gapEnd
	if startOK && endOK {
		return true
	}
	if overlapTol <= 0 {
		return false
	}
	// The candidate must actually reach into the gap before a bounded
	// overshoot can excuse it.
	if cand.End <= gapStart || (!openEnded && cand.Start >= gapEnd) {
		return false
	}
	leftOver := gapStart - cand.Start
	var rightOver time.Duration
	if !openEnded {
		rightOver = cand.End - gapEnd
	}
	return leftOver < overlapTol && rightOver < overlapTol
}
