package main

import (
	"github.com/spf13/cobra"

	"github.com/hmalloy/mrc/internal/pipeline"
)

var (
	reportDate    string
	reportOffline bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize existing bundles and synthesize the draft",
	Long: `Skips consolidation and builds the draft from whatever bundles the
period's context directory already holds. Run after 'mrc consolidate',
or to retry synthesis after a summarization failure.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := requireConfig()
		executePipeline(cfg, pipeline.Options{
			Date:       reportDate,
			ReportOnly: true,
			Offline:    reportOffline,
		})
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Period start (YYYY-MM-DD, YYYYMMDD, or natural language)")
	reportCmd.Flags().BoolVar(&reportOffline, "offline", false, "Use extractive summaries; never call the API")
	rootCmd.AddCommand(reportCmd)
}
