package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/veriface/veriface/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var (
	configInitForce bool

	configInitCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigInit,
	}
)

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	fmt.Println("Current Configuration:")
	fmt.Println("======================")
	fmt.Println()
	fmt.Println("[Matching]")
	fmt.Printf("  Match Threshold:   %.2f\n", cfg.Matching.MatchThreshold)
	fmt.Printf("  Verify Threshold:  %.2f\n", cfg.Matching.VerifyThreshold)
	fmt.Println()
	fmt.Println("[Verification]")
	fmt.Printf("  Max Attempts:      %d\n", cfg.Verification.MaxAttempts)
	fmt.Println()
	fmt.Println("[Scoring]")
	fmt.Printf("  Strategy:          %s\n", cfg.Scoring.Strategy)
	fmt.Println()
	fmt.Println("[Embedding]")
	fmt.Printf("  With Appearance:   %t\n", cfg.Embedding.IncludeAppearance)
	fmt.Println()
	fmt.Println("[Detector]")
	fmt.Printf("  Model Dir:         %s\n", cfg.Detector.ModelDir)
	fmt.Printf("  Min Confidence:    %.2f\n", cfg.Detector.MinConfidence)
	fmt.Println()
	fmt.Println("[Storage]")
	fmt.Printf("  Backend:           %s\n", cfg.Storage.Backend)
	fmt.Printf("  Data Dir:          %s\n", cfg.Storage.DataDir)
	fmt.Printf("  Encryption:        %t\n", cfg.Storage.EncryptionEnabled)
	fmt.Println()
	fmt.Println("[Logging]")
	fmt.Printf("  Level:             %s\n", cfg.Logging.Level)
	fmt.Printf("  File:              %s\n", cfg.Logging.File)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.UserConfigPath()
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("cannot determine a config path, pass one explicitly")
	}

	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	fmt.Printf("Wrote default configuration to %s\n", path)
	return nil
}
