package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hmalloy/mrc/internal/source"
	"github.com/hmalloy/mrc/internal/staleness"
	"github.com/hmalloy/mrc/internal/ui"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show configured sources and their export freshness",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := requireConfig()
		gate := staleness.NewGate(cfg.StalenessThreshold.Std(), time.Now())

		type sourceStatus struct {
			Kind       string `json:"kind"`
			Configured bool   `json:"configured"`
			Paths      string `json:"paths,omitempty"`
			Age        string `json:"age,omitempty"`
			Stale      bool   `json:"stale"`
			Exporter   string `json:"exporter,omitempty"`
		}

		paths := map[source.Kind][]string{
			source.KindNotes:      {cfg.NotesExportDir},
			source.KindTranscript: {cfg.TranscriptsDir},
			source.KindMinutes:    cfg.MinutesDirs,
			source.KindEmail:      {cfg.EmailExportDir},
		}

		var statuses []sourceStatus
		for _, kind := range source.Kinds() {
			st := sourceStatus{Kind: string(kind), Exporter: cfg.Exporters[string(kind)]}
			var configured []string
			for _, p := range paths[kind] {
				if p != "" {
					configured = append(configured, p)
				}
			}
			if len(configured) == 0 {
				statuses = append(statuses, st)
				continue
			}
			st.Configured = true
			st.Paths = strings.Join(configured, ", ")
			var newest time.Duration
			hasAge := false
			for _, p := range configured {
				if age, ok := gate.Age(p); ok && (!hasAge || age < newest) {
					newest, hasAge = age, true
				}
				if gate.IsStale(p) {
					st.Stale = true
				}
			}
			if hasAge {
				st.Age = newest.Round(time.Minute).String()
			}
			statuses = append(statuses, st)
		}

		if jsonOutput {
			outputJSON(statuses)
			return
		}

		fmt.Println(ui.RenderCategory("sources"))
		for _, st := range statuses {
			switch {
			case !st.Configured:
				fmt.Printf("%s %-11s %s\n", ui.RenderSkipIcon(), st.Kind, ui.RenderMuted("not configured"))
			case st.Stale:
				fmt.Printf("%s %-11s %s (%s old)  %s\n", ui.RenderWarnIcon(), st.Kind, ui.RenderWarn("stale"), st.Age, ui.RenderMuted(st.Paths))
				if st.Exporter == "" {
					fmt.Printf("   %s %s\n", ui.RenderMuted(ui.IconInfo), ui.RenderMuted("no exporter configured; stale data will be used as-is"))
				}
			default:
				fmt.Printf("%s %-11s %s (%s old)  %s\n", ui.RenderPassIcon(), st.Kind, ui.RenderPass("fresh"), st.Age, ui.RenderMuted(st.Paths))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
