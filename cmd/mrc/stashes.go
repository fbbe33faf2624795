package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hmalloy/mrc/internal/period"
	"github.com/hmalloy/mrc/internal/ui"
	"github.com/hmalloy/mrc/internal/workdir"
)

var stashesDate string

var stashesCmd = &cobra.Command{
	Use:   "stashes",
	Short: "List stashed files in a period's context directory",
	Long: `Every file the pipeline would overwrite is renamed aside with a
.stashed.<timestamp> suffix instead. This lists those stash records so
an earlier run's output can be recovered by hand.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := requireConfig()

		per, err := period.Resolve(stashesDate, cfg.ReportsDir, cfg.LookbackDays, time.Now())
		if err != nil {
			fatalConfig(err)
		}

		mgr := workdir.NewManager(cfg.WorkingsBase)
		contextDir := mgr.ContextPath(per)
		if _, err := os.Stat(contextDir); os.IsNotExist(err) {
			fatal(fmt.Errorf("no context directory for period %s (%s)", per.Key(), contextDir))
		}

		var stashes []string
		for _, dir := range []string{contextDir, filepath.Join(contextDir, workdir.SummariesDir)} {
			found, err := workdir.Stashes(dir)
			if err != nil {
				continue
			}
			stashes = append(stashes, found...)
		}

		if jsonOutput {
			outputJSON(map[string]any{"context": contextDir, "stashes": stashes})
			return
		}

		if len(stashes) == 0 {
			fmt.Println(ui.RenderMuted("no stashes in " + contextDir))
			return
		}
		fmt.Println(ui.RenderCategory(fmt.Sprintf("stashes in %s", contextDir)))
		for _, s := range stashes {
			info, err := os.Stat(s)
			if err != nil {
				fmt.Printf("  %s\n", s)
				continue
			}
			fmt.Printf("  %s %s\n", s, ui.RenderMuted(fmt.Sprintf("(%d bytes)", info.Size())))
		}
	},
}

func init() {
	stashesCmd.Flags().StringVar(&stashesDate, "date", "", "Period start (YYYY-MM-DD, YYYYMMDD, or natural language)")
	rootCmd.AddCommand(stashesCmd)
}
