package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hmalloy/mrc/internal/period"
	"github.com/hmalloy/mrc/internal/ui"
	"github.com/hmalloy/mrc/internal/workdir"
)

var showDate string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Render the period's draft report in the terminal",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := requireConfig()

		per, err := period.Resolve(showDate, cfg.ReportsDir, cfg.LookbackDays, time.Now())
		if err != nil {
			fatalConfig(err)
		}

		mgr := workdir.NewManager(cfg.WorkingsBase)
		dir := workdir.Dir{Path: mgr.ContextPath(per)}
		draftPath := dir.DraftPath(per)

		data, err := os.ReadFile(draftPath)
		if os.IsNotExist(err) {
			fatal(fmt.Errorf("no draft for period %s yet (run `mrc run` first)", per.Key()))
		}
		if err != nil {
			fatal(err)
		}

		if jsonOutput {
			outputJSON(map[string]string{"path": draftPath, "content": string(data)})
			return
		}
		fmt.Print(ui.RenderMarkdown(string(data)))
	},
}

func init() {
	showCmd.Flags().StringVar(&showDate, "date", "", "Period start (YYYY-MM-DD, YYYYMMDD, or natural language)")
	rootCmd.AddCommand(showCmd)
}
