package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/hmalloy/mrc/internal/config"
	"github.com/hmalloy/mrc/internal/ui"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file interactively",
	Long: `Creates the mrc config file through an interactive form.

Leave a source directory blank to skip that source; it can be added to
the config file later. Keyboard navigation:
  - Tab/Shift+Tab: Move between fields
  - Enter: Submit
  - Ctrl+C: Cancel`,
	Run: func(cmd *cobra.Command, args []string) {
		runInitForm()
	},
}

func runInitForm() {
	path := cfgPath
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil && !initForce {
		fatal(fmt.Errorf("config already exists at %s (use --force to overwrite)", path))
	}

	var (
		workingsBase string
		notesDir     string
		transcripts  string
		minutesInput string
		emailDir     string
		reportsDir   string
		model        string
	)

	modelOptions := []huh.Option[string]{
		huh.NewOption("Claude Haiku (fast, cheap)", "claude-3-5-haiku-latest"),
		huh.NewOption("Claude Sonnet (higher quality)", "claude-sonnet-4-5"),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Workings directory").
				Description("Where context_<date> directories are created (required)").
				Placeholder("~/reports/workings").
				Value(&workingsBase).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("workings directory is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Notes export directory").
				Description("Markdown tree from your notes exporter (blank to skip)").
				Value(&notesDir),
			huh.NewInput().
				Title("Transcripts directory").
				Description("Downloaded call transcripts (blank to skip)").
				Value(&transcripts),
			huh.NewInput().
				Title("Minutes directories").
				Description("Comma-separated list of minutes folders (blank to skip)").
				Value(&minutesInput),
			huh.NewInput().
				Title("Email export directory").
				Description("gmail_export*.md / emails_*.txt batches (blank to skip)").
				Value(&emailDir),
			huh.NewInput().
				Title("Reports directory").
				Description("Where finished monthly reports live (seeds the next period)").
				Value(&reportsDir),
			huh.NewSelect[string]().
				Title("Summarization model").
				Options(modelOptions...).
				Value(&model),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(os.Stderr, "Cancelled.")
			os.Exit(1)
		}
		fatal(err)
	}

	cfg := &config.Config{
		WorkingsBase:   expandHome(workingsBase),
		NotesExportDir: expandHome(notesDir),
		TranscriptsDir: expandHome(transcripts),
		EmailExportDir: expandHome(emailDir),
		ReportsDir:     expandHome(reportsDir),
		Model:          model,
	}
	for _, dir := range strings.Split(minutesInput, ",") {
		if d := strings.TrimSpace(dir); d != "" {
			cfg.MinutesDirs = append(cfg.MinutesDirs, expandHome(d))
		}
	}

	if err := cfg.Save(path); err != nil {
		fatal(err)
	}
	fmt.Printf("%s wrote %s\n", ui.RenderPassIcon(), path)
	fmt.Println(ui.RenderMuted("defaults: 60-day lookback, 24h staleness threshold, 4 workers"))
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + strings.TrimPrefix(path, "~")
		}
	}
	return path
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
