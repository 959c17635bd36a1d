package whisper

import (
	"fmt"

	"subfuse/internal/subtitle"
)

// engineParams are the decoding knobs that differ between passes.
type engineParams struct {
	beamSize            int
	temperature         float64
	conditionOnPrevious bool
	noSpeechThreshold   float64
}

// passParams maps a pass label to its decoding parameters.
//
// The accurate pass decodes conservatively and produces the cleanest text;
// it anchors the merge. The balanced pass loosens the decoder enough to
// transcribe speech the accurate pass skipped. The coverage pass trades
// precision for recall: it stops conditioning on previous text and raises
// the no-speech threshold so mumbled or overlapping dialogue still yields
// cues for the remaining gaps.
func passParams(pass string) (engineParams, error) {
	switch pass {
	case subtitle.PassAccurate:
		return engineParams{
			beamSize:            5,
			temperature:         0,
			conditionOnPrevious: true,
		}, nil
	case subtitle.PassBalanced:
		return engineParams{
			beamSize:            5,
			temperature:         0.2,
			conditionOnPrevious: true,
		}, nil
	case subtitle.PassCoverage:
		return engineParams{
			beamSize:            3,
			temperature:         0.4,
			conditionOnPrevious: false,
			noSpeechThreshold:   0.8,
		}, nil
	default:
		return engineParams{}, fmt.Errorf("unknown transcription pass %q", pass)
	}
}
