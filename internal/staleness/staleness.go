// Package staleness decides whether an upstream export is fresh enough to
// consolidate from, and re-runs the exporter command when it is not.
// Freshness is a best-effort optimization: a failed re-export downgrades
// to a warning and the stale copy is used.
package staleness

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Gate checks export freshness against a threshold, relative to the
// run's start time.
type Gate struct {
	Threshold time.Duration
	Now       time.Time
}

func NewGate(threshold time.Duration, now time.Time) *Gate {
	return &Gate{Threshold: threshold, Now: now}
}

// IsStale reports whether the export at path needs regeneration: the
// path is absent, or its newest file's modification time is older than
// the threshold. Directories are judged by their newest contained file,
// matching how exporters refresh trees in place.
func (g *Gate) IsStale(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}

	newest := info.ModTime()
	if info.IsDir() {
		if t, ok := newestFileTime(path); ok {
			newest = t
		}
	}
	return g.Now.Sub(newest) > g.Threshold
}

// Age returns how old the export is, for status display. ok is false
// when the export is absent.
func (g *Gate) Age(path string) (time.Duration, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	newest := info.ModTime()
	if info.IsDir() {
		if t, ok := newestFileTime(path); ok {
			newest = t
		}
	}
	return g.Now.Sub(newest), true
}

func newestFileTime(root string) (time.Time, bool) {
	var newest time.Time
	found := false
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !found || info.ModTime().After(newest) {
			newest = info.ModTime()
			found = true
		}
		return nil
	})
	return newest, found
}

// ReExportError wraps an exporter failure. Callers record it as a
// warning and proceed with the stale copy.
type ReExportError struct {
	Kind string
	Cmd  string
	Err  error
}

func (e *ReExportError) Error() string {
	return fmt.Sprintf("re-export %s (%s): %v", e.Kind, e.Cmd, e.Err)
}

func (e *ReExportError) Unwrap() error { return e.Err }

// ReExporter runs configured exporter commands through the shell, one
// per source kind.
type ReExporter struct {
	// Commands maps source kind name to the exporter command line.
	Commands map[string]string
	// Timeout bounds one exporter run. Zero means no bound beyond ctx.
	Timeout time.Duration
}

// Has reports whether an exporter command is configured for kind.
func (r *ReExporter) Has(kind string) bool {
	return strings.TrimSpace(r.Commands[kind]) != ""
}

// ReExport runs the exporter for kind. A missing command is not an
// error: sources without exporters simply consolidate from whatever is
// on disk.
func (r *ReExporter) ReExport(ctx context.Context, kind string) error {
	cmdline, ok := r.Commands[kind]
	if !ok || strings.TrimSpace(cmdline) == "" {
		return nil
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdline) // #nosec G204 - command comes from the user's own config
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &ReExportError{Kind: kind, Cmd: cmdline,
			Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))}
	}
	return nil
}
