package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/veriface/veriface/pkg/features"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <identity> <image>...",
	Short: "Verify face images against an enrolled identity",
	Long: `Verify runs one attempt-limited session against the identity's stored
gallery. Each image is one attempt; the session ends at the first match or
when attempts run out. Exit code 0 means verified, 1 means not.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	identity, paths := args[0], args[1:]

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

	probes := make([]features.Record, 0, len(paths))
	for _, path := range paths {
		record, err := extractRecord(engine, det, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		probes = append(probes, record)
	}

	outcome, err := engine.Verify(cmd.Context(), identity, probes)
	if err != nil {
		return err
	}

	if outcome.Matched {
		fmt.Printf("Verified '%s' (score %.3f, confidence %s, attempt %d/%d).\n",
			identity, outcome.Score, outcome.Confidence, outcome.Attempts, cfg.Verification.MaxAttempts)
		return nil
	}

	fmt.Printf("Verification failed for '%s' (last score %.3f, %d attempt(s) used).\n",
		identity, outcome.Score, outcome.Attempts)
	engine.Close()
	det.Close()
	os.Exit(1)
	return nil
}
