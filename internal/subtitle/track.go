package subtitle

import (
	"sort"
	"time"
)

// Cue is a single timed caption entry. Start and End are offsets from track
// start at millisecond resolution; Start < End for any valid cue.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Duration returns the on-screen time of the cue.
func (c Cue) Duration() time.Duration {
	return c.End - c.Start
}

// Track is an ordered sequence of cues for one source item and one language.
// Raw tracks straight out of a transcription pass may overlap; every
// whole-track transform in this package returns a track that is sorted by
// (start, end) with indices renumbered from 1.
type Track []Cue

// Clone returns an independent copy of the track.
func (t Track) Clone() Track {
	if t == nil {
		return nil
	}
	cp := make(Track, len(t))
	copy(cp, t)
	return cp
}

// Sort orders cues by (start, end) ascending. The sort is stable so cues with
// identical timing keep their relative order.
func (t Track) Sort() {
	sort.SliceStable(t, func(i, j int) bool {
		if t[i].Start != t[j].Start {
			return t[i].Start < t[j].Start
		}
		return t[i].End < t[j].End
	})
}

// Reindex renumbers cues 1..N in current order.
func (t Track) Reindex() {
	for i := range t {
		t[i].Index = i + 1
	}
}

// Normalized returns a sorted, reindexed copy of the track.
func (t Track) Normalized() Track {
	out := t.Clone()
	out.Sort()
	out.Reindex()
	return out
}

// End returns the end time of the last cue, or zero for an empty track.
func (t Track) End() time.Duration {
	var last time.Duration
	for _, cue := range t {
		if cue.End > last {
			last = cue.End
		}
	}
	return last
}

// Overlaps reports whether any two consecutive cues of a sorted track overlap.
func (t Track) Overlaps() bool {
	for i := 1; i < len(t); i++ {
		if t[i].Start < t[i-1].End {
			return true
		}
	}
	return false
}
