package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"subfuse/internal/services/whisper"
	"subfuse/internal/subtitle"
)

// newChunkCommand re-segments a transcription result into display-safe cues.
// Engine JSON results keep their word timing, so pause splitting can break
// inside a segment; SRT input chunks at cue granularity.
func newChunkCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "chunk <result.json|track.srt>",
		Short: "Re-segment a transcription result into display-safe cues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var fragments []subtitle.Fragment
			if strings.EqualFold(filepath.Ext(args[0]), ".json") {
				fragments, err = whisper.ParseResultFile(args[0])
			} else {
				var track subtitle.Track
				track, err = subtitle.ParseFile(args[0])
				fragments = trackFragments(track)
			}
			if err != nil {
				return err
			}

			chunked := subtitle.Chunk(fragments, cfg.ChunkConfig())

			target := resolveOutputPath(outputPath, args[0], ".chunked.srt")
			if err := subtitle.WriteFile(target, chunked); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chunked %d fragments into %d cues: %s\n",
				len(fragments), len(chunked), target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (default: <input>.chunked.srt)")
	return cmd
}

// newCleanCommand runs the spam filter and re-segmentation over a single SRT
// file, outside of the queue workflow.
func newCleanCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "clean <track.srt>",
		Short: "Filter junk cues and re-segment one subtitle track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			track, err := subtitle.ParseFile(args[0])
			if err != nil {
				return err
			}

			filtered := subtitle.NewFilter(cfg.FilterOptions()).Clean(track)
			clean := subtitle.Chunk(trackFragments(filtered), cfg.ChunkConfig())

			target := resolveOutputPath(outputPath, args[0], ".clean.srt")
			if err := subtitle.WriteFile(target, clean); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleaned %d cues down to %d: %s\n",
				len(track), len(clean), target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (default: <input>.clean.srt)")
	return cmd
}

// newMergeCommand fills silence gaps of a primary track with cues from one or
// more secondary tracks.
func newMergeCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "merge <primary.srt> <secondary.srt> [more.srt...]",
		Short: "Fill a track's silence gaps with cues from other passes",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			merged, err := subtitle.ParseFile(args[0])
			if err != nil {
				return err
			}

			mergeCfg := cfg.MergeConfig()
			total := 0
			for _, path := range args[1:] {
				secondary, err := subtitle.ParseFile(path)
				if err != nil {
					return err
				}
				var added int
				merged, added = subtitle.MergeIntoGaps(merged, secondary, mergeCfg)
				total += added
			}

			target := resolveOutputPath(outputPath, args[0], ".merged.srt")
			if err := subtitle.WriteFile(target, merged); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %d recovered cues into %d total: %s\n",
				total, len(merged), target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (default: <primary>.merged.srt)")
	return cmd
}

// newZipCommand combines two aligned tracks into one bilingual track.
func newZipCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "zip <primary.srt> <secondary.srt>",
		Short: "Combine two aligned tracks into a bilingual track",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			primary, err := subtitle.ParseFile(args[0])
			if err != nil {
				return err
			}
			secondary, err := subtitle.ParseFile(args[1])
			if err != nil {
				return err
			}

			bilingual, err := subtitle.Zip(primary, secondary)
			if err != nil {
				return err
			}

			target := resolveOutputPath(outputPath, args[0], ".bilingual.srt")
			if err := subtitle.WriteFile(target, bilingual); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Zipped %d cue pairs: %s\n", len(bilingual), target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (default: <primary>.bilingual.srt)")
	return cmd
}

func trackFragments(track subtitle.Track) []subtitle.Fragment {
	fragments := make([]subtitle.Fragment, 0, len(track))
	for _, cue := range track {
		fragments = append(fragments, subtitle.Fragment{
			Text:  cue.Text,
			Start: cue.Start,
			End:   cue.End,
		})
	}
	return fragments
}

func resolveOutputPath(explicit, input, suffix string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}
