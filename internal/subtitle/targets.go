package subtitle

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Transcription pass labels. Each pass is one independent run over the same
// audio with different decoding parameters.
const (
	PassAccurate = "accurate"
	PassBalanced = "balanced"
	PassCoverage = "coverage"
)

// Passes returns the pass labels in merge precedence order: the accurate pass
// is the merge base, the others fill its gaps.
func Passes() []string {
	return []string{PassAccurate, PassBalanced, PassCoverage}
}

// SourceStem derives the artifact stem from a media path, stripping the
// extension and the "_vocals" suffix left by source separation.
func SourceStem(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.TrimSuffix(stem, "_vocals")
}

// PassTrackName is the raw per-pass track: <LANG>_<stem>_<pass>.srt.
func PassTrackName(prefix, stem, pass string) string {
	return fmt.Sprintf("%s_%s_%s.srt", strings.ToUpper(prefix), stem, pass)
}

// MergedTrackName is the reconciled single-language track: <LANG>_<stem>.srt.
func MergedTrackName(prefix, stem string) string {
	return fmt.Sprintf("%s_%s.srt", strings.ToUpper(prefix), stem)
}

// CleanTrackName is the filtered, re-segmented track handed to translation:
// <LANG>_clean_<stem>.srt.
func CleanTrackName(prefix, stem string) string {
	return fmt.Sprintf("%s_clean_%s.srt", strings.ToUpper(prefix), stem)
}

// BilingualTrackName is the final dual-language track: <stem>.<lang>.srt.
func BilingualTrackName(stem, prefix string) string {
	return fmt.Sprintf("%s.%s.srt", stem, strings.ToLower(prefix))
}
