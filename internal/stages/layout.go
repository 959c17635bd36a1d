package stages

import (
	"path/filepath"

	"subfuse/internal/config"
	"subfuse/internal/subtitle"
)

// Layout computes where every intermediate and final track lives for a given
// media source. All intermediates sit in a per-title directory under the
// working dir; only the bilingual result lands in the output dir.
type Layout struct {
	WorkDir    string
	OutputDir  string
	SourceLang string
	TargetLang string
}

// NewLayout derives the artifact layout from configuration.
func NewLayout(cfg *config.Config) Layout {
	return Layout{
		WorkDir:    cfg.Paths.WorkDir,
		OutputDir:  cfg.Paths.OutputDir,
		SourceLang: cfg.Languages.Source,
		TargetLang: cfg.Languages.Target,
	}
}

// ItemDir is the per-title working directory.
func (l Layout) ItemDir(source string) string {
	return filepath.Join(l.WorkDir, subtitle.SourceStem(source))
}

// PassTrack is the raw track for one transcription pass.
func (l Layout) PassTrack(source, pass string) string {
	stem := subtitle.SourceStem(source)
	return filepath.Join(l.ItemDir(source), subtitle.PassTrackName(l.SourceLang, stem, pass))
}

// MergedTrack is the reconciled source-language track.
func (l Layout) MergedTrack(source string) string {
	stem := subtitle.SourceStem(source)
	return filepath.Join(l.ItemDir(source), subtitle.MergedTrackName(l.SourceLang, stem))
}

// CleanTrack is the filtered, re-segmented source-language track.
func (l Layout) CleanTrack(source string) string {
	stem := subtitle.SourceStem(source)
	return filepath.Join(l.ItemDir(source), subtitle.CleanTrackName(l.SourceLang, stem))
}

// TranslatedTrack is where the external translator drops the target-language
// rendition of the clean track.
func (l Layout) TranslatedTrack(source string) string {
	stem := subtitle.SourceStem(source)
	return filepath.Join(l.ItemDir(source), subtitle.CleanTrackName(l.TargetLang, stem))
}

// BilingualTrack is the final dual-language output.
func (l Layout) BilingualTrack(source string) string {
	stem := subtitle.SourceStem(source)
	return filepath.Join(l.OutputDir, subtitle.BilingualTrackName(stem, l.TargetLang))
}
