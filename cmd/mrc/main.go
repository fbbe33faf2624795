// Command mrc consolidates a month of working notes, transcripts,
// minutes, and email into a draft monthly report.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hmalloy/mrc/internal/config"
	"github.com/hmalloy/mrc/internal/telemetry"
)

var (
	cfgPath     string
	jsonOutput  bool
	quietFlag   bool
	verboseFlag bool
)

var (
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "mrc",
	Short: "mrc - monthly report consolidation",
	Long: `Consolidates a reporting period's working notes, call transcripts,
meeting minutes, and email exports into per-source bundles, summarizes
them, and synthesizes a draft monthly report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("mrc version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		if err := telemetry.Init(rootCtx, "mrc", Version); err != nil && verboseFlag {
			fmt.Fprintf(os.Stderr, "Warning: telemetry init failed: %v\n", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		telemetry.Shutdown(ctx)
		cancel()
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file path (default: ~/.config/mrc/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.Flags().BoolP("version", "V", false, "Print version information")
}

// requireConfig loads and validates configuration, exiting on failure.
// Configuration problems are the only fatal class: exit code 2.
func requireConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			fatalConfig(fmt.Errorf("%w (run `mrc init` to create one)", err))
		}
		fatalConfig(err)
	}
	if err := cfg.Validate(); err != nil {
		fatalConfig(err)
	}
	return cfg
}

// fatalConfig reports a configuration failure and exits 2.
func fatalConfig(err error) {
	if jsonOutput {
		outputJSONError(err, "config", 2)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(2)
}

// fatal reports a non-config failure and exits 1.
func fatal(err error) {
	if jsonOutput {
		outputJSONError(err, "", 1)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) || errors.Is(err, config.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
