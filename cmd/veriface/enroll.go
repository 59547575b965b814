package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/veriface/veriface/pkg/matching"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <identity> <image>...",
	Short: "Enroll an identity from one or more face images",
	Long: `Enroll detects the single face in each image, extracts its feature
record, and stores the samples in the identity's gallery. Enrolling an
already-known identity appends samples to its existing gallery.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
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

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Extracting features"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	samples := make(matching.Gallery, 0, len(paths))
	for _, path := range paths {
		record, err := extractRecord(engine, det, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		sample, err := engine.NewSample(record, filepath.Base(path))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		samples = append(samples, sample)
		bar.Add(1)
	}
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	if err := engine.Enroll(cmd.Context(), identity, samples, nil); err != nil {
		return err
	}

	fmt.Printf("Enrolled '%s' with %d sample(s).\n", identity, len(samples))
	return nil
}
