package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/veriface/veriface"
	"github.com/veriface/veriface/pkg/config"
	"github.com/veriface/veriface/pkg/logging"
)

var (
	// cfg is the effective configuration shared by subcommands.
	cfg     *config.Config
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:          "veriface",
	Short:        "Face verification engine for single-identity galleries",
	Version:      veriface.Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgPath != "" {
			cfg, err = config.Load(cfgPath)
		} else {
			cfg, err = config.LoadDefault()
		}
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		cfg.ExpandPaths()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			return err
		}

		level := cfg.Logging.Level
		if debug {
			level = "debug"
		}
		return logging.Init(level, cfg.Logging.File)
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "veriface v%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newEngine opens the configured gallery store and wires the engine over it.
// Callers own the Close.
func newEngine(ctx context.Context) (*veriface.Engine, error) {
	return veriface.New(ctx, cfg)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}
