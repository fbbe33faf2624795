package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hmalloy/mrc/internal/config"
	"github.com/hmalloy/mrc/internal/manifest"
	"github.com/hmalloy/mrc/internal/period"
	"github.com/hmalloy/mrc/internal/pipeline"
	"github.com/hmalloy/mrc/internal/ui"
)

var (
	runDate    string
	runDryRun  bool
	runOffline bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: consolidate, summarize, synthesize",
	Long: `Runs the full pipeline for one reporting period.

The period start comes from --date, or the newest prior report in the
reports directory, or the configured lookback. A run with degraded
sources still succeeds; check the run manifest for details. Only
configuration errors abort.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := requireConfig()
		opts := pipeline.Options{
			Date:    runDate,
			DryRun:  runDryRun,
			Offline: runOffline,
		}
		executePipeline(cfg, opts)
	},
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "Period start (YYYY-MM-DD, YYYYMMDD, or natural language)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Resolve the period and report staleness without writing")
	runCmd.Flags().BoolVar(&runOffline, "offline", false, "Use extractive summaries; never call the API")
	rootCmd.AddCommand(runCmd)
}

// executePipeline runs the pipeline and renders the outcome. Shared by
// run, consolidate, and report.
func executePipeline(cfg *config.Config, opts pipeline.Options) {
	p := pipeline.New(cfg)
	if verboseFlag && !jsonOutput {
		p.Progress = os.Stderr
	}

	res, err := p.Run(rootCtx, opts)
	if err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) || errors.Is(err, period.ErrUnresolvable) {
			fatalConfig(err)
		}
		fatal(err)
	}

	if jsonOutput {
		outputJSON(res.Manifest)
		return
	}
	printManifest(os.Stdout, res.Manifest, res.DraftPath)
}

func printManifest(w io.Writer, m *manifest.RunManifest, draftPath string) {
	if quietFlag {
		return
	}

	fmt.Fprintf(w, "%s\n", ui.RenderCategory(fmt.Sprintf("period %s to %s", m.PeriodStart, m.PeriodEnd)))
	for _, s := range m.Sources {
		icon := outcomeIcon(s.Outcome)
		line := fmt.Sprintf("%s %-11s %s", icon, s.Kind, outcomeText(s.Outcome))
		if s.Records > 0 {
			line += fmt.Sprintf(" (%d records from %d documents", s.Records, s.Documents)
			if s.OutOfPeriod > 0 {
				line += fmt.Sprintf(", %d out of period", s.OutOfPeriod)
			}
			if s.NoTimestamp > 0 {
				line += fmt.Sprintf(", %d undated", s.NoTimestamp)
			}
			line += ")"
		}
		fmt.Fprintln(w, line)
		if s.Error != "" {
			fmt.Fprintf(w, "   %s\n", ui.RenderMuted(s.Error))
		}
	}

	if len(m.Warnings) > 0 || len(m.Stashes) > 0 || draftPath != "" {
		fmt.Fprintln(w, ui.RenderSeparator())
	}
	for _, warning := range m.Warnings {
		fmt.Fprintf(w, "%s %s\n", ui.RenderWarnIcon(), warning)
	}
	if len(m.Stashes) > 0 {
		fmt.Fprintf(w, "%s\n", ui.RenderMuted(fmt.Sprintf("%d prior file(s) stashed", len(m.Stashes))))
	}
	if draftPath != "" {
		fmt.Fprintf(w, "%s draft: %s\n", ui.RenderPassIcon(), draftPath)
	}
}

func outcomeText(o manifest.Outcome) string {
	switch o {
	case manifest.OutcomeSucceeded:
		return ui.RenderPass(string(o))
	case manifest.OutcomeStaleButUsed:
		return ui.RenderWarn(string(o))
	case manifest.OutcomeFailed:
		return ui.RenderFail(string(o))
	default:
		return ui.RenderMuted(string(o))
	}
}

func outcomeIcon(o manifest.Outcome) string {
	switch o {
	case manifest.OutcomeSucceeded:
		return ui.RenderPassIcon()
	case manifest.OutcomeStaleButUsed:
		return ui.RenderWarnIcon()
	case manifest.OutcomeFailed:
		return ui.RenderFailIcon()
	default:
		return ui.RenderSkipIcon()
	}
}
