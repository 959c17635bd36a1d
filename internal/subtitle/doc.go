// Package subtitle reconciles and normalizes noisy transcription output into
// clean, non-overlapping subtitle tracks.
//
// The package is built from five pure transforms over immutable Track values:
// the SRT codec (Parse/Serialize/WriteFile), the spam Filter, the cue Chunk
// re-segmenter, the gap merger (MergeIntoGaps), and the bilingual Zip. None
// of them hold state between calls; every transform returns a new track that
// is sorted by (start, end) and renumbered from 1.
package subtitle
