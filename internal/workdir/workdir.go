// Package workdir owns the on-disk working area for one reporting period:
// the context_<YYYYMMDD> directory, its subdirectories, and the
// stash-then-write discipline that makes every run crash-safe.
//
// The safety property: an existing file is renamed aside (never deleted)
// before anything writes to its path, and new content lands via a
// temporary file plus atomic rename. A crash at any point leaves either
// the old file, the stash plus the old file, or the stash plus the new
// file - never a half-written canonical file.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/hmalloy/mrc/internal/period"
)

const (
	SummariesDir       = "summaries"
	AdditionalNotesDir = "additional_notes"

	stashInfix = ".stashed."
)

// maxStashSuffix bounds the numeric suffix search on stash collisions.
// Two stashes of the same path in the same second are already unusual;
// a thousand means something is looping.
const maxStashSuffix = 1000

// Dir is the resolved working area for one period.
type Dir struct {
	// Path is WorkingsBase/context_<YYYYMMDD>.
	Path string
	// Existed reports whether the directory was already present when
	// Ensure ran (a prior run for the same period).
	Existed bool
}

// Summaries returns the intermediate-summaries subdirectory.
func (d Dir) Summaries() string { return filepath.Join(d.Path, SummariesDir) }

// AdditionalNotes returns the free-form notes subdirectory.
func (d Dir) AdditionalNotes() string { return filepath.Join(d.Path, AdditionalNotesDir) }

// BundlePath returns the deterministic consolidated-bundle path for one
// source kind: consolidated_<kind>_<YYYYMMDD>.txt.
func (d Dir) BundlePath(kind string, p period.Period) string {
	return filepath.Join(d.Path, fmt.Sprintf("consolidated_%s_%s.txt", kind, p.Key()))
}

// SummaryPath returns the intermediate summary path for one source kind.
func (d Dir) SummaryPath(kind string, p period.Period) string {
	return filepath.Join(d.Summaries(), fmt.Sprintf("summary_%s_%s.md", kind, p.Key()))
}

// DraftPath returns the synthesized draft path inside the context dir.
func (d Dir) DraftPath(p period.Period) string {
	return filepath.Join(d.Path, fmt.Sprintf("%s-monthly-report-DRAFT.md", p.Key()))
}

// Manager creates and guards context directories under one workings base.
type Manager struct {
	Base string
	// Now is the clock used for stash timestamps; tests pin it.
	Now func() time.Time
}

func NewManager(base string) *Manager {
	return &Manager{Base: base, Now: time.Now}
}

// ContextPath returns the directory path for a period without creating
// it. Identity is a pure function of the period start date.
func (m *Manager) ContextPath(p period.Period) string {
	return filepath.Join(m.Base, "context_"+p.Key())
}

// Ensure idempotently creates the context directory and its
// subdirectories. Re-running with the same start date always resolves to
// the same directory.
func (m *Manager) Ensure(p period.Period) (Dir, error) {
	path := m.ContextPath(p)

	existed := false
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		existed = true
	}

	for _, dir := range []string{path,
		filepath.Join(path, SummariesDir),
		filepath.Join(path, AdditionalNotesDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Dir{}, fmt.Errorf("creating context dir %s: %w", dir, err)
		}
	}
	return Dir{Path: path, Existed: existed}, nil
}

// StashIfPresent renames an existing file at path aside before a caller
// writes a new one. The original is renamed to <path>.stashed.<ts>, with
// a numeric suffix on collision. Nothing is ever deleted; stashes
// accumulate until an operator prunes them.
//
// Returns the stash path, or "" when there was nothing to stash.
func (m *Manager) StashIfPresent(path string) (string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("refusing to stash directory %s", path)
	}

	ts := m.Now().Format("20060102_150405")
	stash := path + stashInfix + ts
	for n := 1; ; n++ {
		if _, err := os.Stat(stash); os.IsNotExist(err) {
			break
		}
		if n >= maxStashSuffix {
			return "", fmt.Errorf("no free stash name for %s", path)
		}
		stash = fmt.Sprintf("%s%s%s.%d", path, stashInfix, ts, n)
	}

	if err := renameWithRetry(path, stash); err != nil {
		return "", fmt.Errorf("stashing %s: %w", path, err)
	}
	return stash, nil
}

// IsStash reports whether a filename is a stash record, so scans over
// the context directory never treat stashed copies as live outputs.
func IsStash(name string) bool {
	return strings.Contains(name, stashInfix)
}

// Stashes lists the stash records under a context directory, newest
// first within each canonical path.
func Stashes(contextDir string) ([]string, error) {
	entries, err := os.ReadDir(contextDir)
	if err != nil {
		return nil, fmt.Errorf("reading context dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && IsStash(e.Name()) {
			out = append(out, filepath.Join(contextDir, e.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// WriteFileAtomic writes data so a partial write is never visible at the
// final path: content goes to a temporary file in the same directory,
// is synced, then renamed into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := renameWithRetry(tmpName, path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// StashAndWrite is the canonical stash-then-write sequence: stash any
// existing file at path, then atomically write the new content. A crash
// between the two steps leaves the canonical path absent (not corrupt)
// and the old content recoverable under the stash name.
func (m *Manager) StashAndWrite(path string, data []byte) (stash string, err error) {
	stash, err = m.StashIfPresent(path)
	if err != nil {
		return "", err
	}
	if err := WriteFileAtomic(path, data); err != nil {
		return stash, err
	}
	return stash, nil
}

// renameWithRetry retries transient rename failures on Windows, where
// another process holding a handle on the target makes os.Rename fail
// with access denied. Elsewhere the first error is final.
func renameWithRetry(oldPath, newPath string) error {
	var lastErr error
	delay := 100 * time.Millisecond
	for attempt := 0; attempt <= 3; attempt++ {
		if lastErr = os.Rename(oldPath, newPath); lastErr == nil {
			return nil
		}
		if runtime.GOOS != "windows" {
			break
		}
		if attempt < 3 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return lastErr
}
