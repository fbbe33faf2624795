package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/hmalloy/mrc/internal/pipeline"
	"github.com/hmalloy/mrc/internal/ui"
)

var watchDate string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-consolidate whenever a source export changes",
	Long: `Watches the configured export directories and re-runs consolidation
when files change. Summarization is not triggered; run 'mrc report'
when the bundles look right.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := requireConfig()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			fatal(fmt.Errorf("creating watcher: %w", err))
		}
		defer func() { _ = watcher.Close() }()

		dirs := []string{cfg.NotesExportDir, cfg.TranscriptsDir, cfg.EmailExportDir}
		dirs = append(dirs, cfg.MinutesDirs...)
		watched := 0
		for _, dir := range dirs {
			if dir == "" {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				fmt.Fprintf(os.Stderr, "%s cannot watch %s: %v\n", ui.RenderWarnIcon(), dir, err)
				continue
			}
			watched++
		}
		if watched == 0 {
			fatal(fmt.Errorf("no watchable source directories configured"))
		}

		opts := pipeline.Options{Date: watchDate, ConsolidateOnly: true}
		executePipeline(cfg, opts)
		fmt.Fprintf(os.Stderr, "\nWatching %d directories... (Press Ctrl+C to exit)\n", watched)

		// Debounce bursts: exporters rewrite many files at once.
		var debounce *time.Timer
		const debounceDelay = 2 * time.Second

		for {
			select {
			case <-rootCtx.Done():
				fmt.Fprintln(os.Stderr, "\nStopped watching.")
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if !watchableFile(event.Name) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, func() {
					fmt.Fprintf(os.Stderr, "%s change detected, re-consolidating\n", ui.RenderAccent("→"))
					executePipeline(cfg, opts)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				fmt.Fprintf(os.Stderr, "%s watch error: %v\n", ui.RenderWarnIcon(), err)
			}
		}
	},
}

func watchableFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt", ".text", ".rtf":
		return true
	}
	return false
}

func init() {
	watchCmd.Flags().StringVar(&watchDate, "date", "", "Period start (YYYY-MM-DD, YYYYMMDD, or natural language)")
	rootCmd.AddCommand(watchCmd)
}
