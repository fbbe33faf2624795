package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hmalloy/mrc/internal/pipeline"
	"github.com/hmalloy/mrc/internal/source"
)

var (
	consolidateDate    string
	consolidateSources []string
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Consolidate sources into per-kind bundles without summarizing",
	Long: `Consolidates each configured source into its
consolidated_<kind>_<YYYYMMDD>.txt bundle and stops. Useful for
inspecting what a report would be built from, or for feeding the
bundles to a different summarizer.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := requireConfig()

		var kinds []source.Kind
		for _, name := range consolidateSources {
			k := source.Kind(name)
			if !k.Valid() {
				fmt.Fprintf(os.Stderr, "Error: unknown source %q (valid: notes, transcript, minutes, email)\n", name)
				os.Exit(2)
			}
			kinds = append(kinds, k)
		}

		executePipeline(cfg, pipeline.Options{
			Date:            consolidateDate,
			Kinds:           kinds,
			ConsolidateOnly: true,
		})
	},
}

func init() {
	consolidateCmd.Flags().StringVar(&consolidateDate, "date", "", "Period start (YYYY-MM-DD, YYYYMMDD, or natural language)")
	consolidateCmd.Flags().StringSliceVar(&consolidateSources, "source", nil, "Restrict to specific source kinds (repeatable)")
	rootCmd.AddCommand(consolidateCmd)
}
