package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <identity> <image>",
	Short: "Run a one-shot gallery match without a verification session",
	Long: `Match scores the image's face against every sample in the identity's
gallery and reports the best, using the general match threshold. Unlike
verify it consumes no attempts and always exits 0.`,
	Args: cobra.ExactArgs(2),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	identity, path := args[0], args[1]

	engine, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer engine.Close()

	det, err := newDetector()
	if err != nil {
		return err
	}
	defer det.Close()

	record, err := extractRecord(engine, det, path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	gallery, err := engine.Gallery(cmd.Context(), identity)
	if err != nil {
		return err
	}

	result := engine.MatchAgainstGallery(record, gallery.Samples, cfg.Matching.MatchThreshold)

	fmt.Printf("Matched:      %t\n", result.Matched)
	fmt.Printf("Score:        %.3f\n", result.Score)
	fmt.Printf("Confidence:   %s\n", result.Confidence)
	if result.BestSampleIndex >= 0 {
		sample := gallery.Samples[result.BestSampleIndex]
		label := sample.Label
		if label == "" {
			label = "unlabeled"
		}
		fmt.Printf("Best sample:  %d (%s)\n", result.BestSampleIndex, label)
	}
	return nil
}
