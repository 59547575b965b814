package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/veriface/veriface/pkg/matching"
	"github.com/veriface/veriface/pkg/scoring"
)

var compareStrategy string

var compareCmd = &cobra.Command{
	Use:   "compare <image> <image>",
	Short: "Score the similarity of the faces in two images",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&compareStrategy, "strategy", "s", "",
		"Scoring strategy: heuristic, geometry, or cosine (default: configured)")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
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

	recordA, err := extractRecord(engine, det, args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	recordB, err := extractRecord(engine, det, args[1])
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}

	strategy := cfg.Scoring.Strategy
	if compareStrategy != "" {
		strategy = compareStrategy
	}
	scorer, err := scoring.ForStrategy(scoring.Strategy(strategy), engine.EmbeddingConfig())
	if err != nil {
		return err
	}

	score := scorer.Score(recordA, recordB)
	fmt.Printf("Similarity:  %.3f (%s)\n", score, strategy)
	fmt.Printf("Confidence:  %s\n", matching.Classify(score))
	return nil
}
