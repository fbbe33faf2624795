// Package manifest records what a pipeline run did: one YAML file per
// run, written into the context directory. The manifest is the audit
// trail for partial success - a run that exits 0 with a degraded source
// still says so here.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/hmalloy/mrc/internal/workdir"
)

// Outcome classifies how one source fared during a run.
type Outcome string

const (
	OutcomeSucceeded    Outcome = "succeeded"
	OutcomeStaleButUsed Outcome = "stale-but-used"
	OutcomeFailed       Outcome = "failed"
	OutcomeSkipped      Outcome = "skipped"
)

// SourceRecord is the per-source entry in a run manifest.
type SourceRecord struct {
	Kind        string  `yaml:"kind"`
	Outcome     Outcome `yaml:"outcome"`
	Error       string  `yaml:"error,omitempty"`
	Documents   int     `yaml:"documents"`
	Records     int     `yaml:"records"`
	NoTimestamp int     `yaml:"no_timestamp,omitempty"`
	OutOfPeriod int     `yaml:"out_of_period,omitempty"`
	Oversized   int     `yaml:"oversized,omitempty"`
	BundlePath  string  `yaml:"bundle,omitempty"`
	SummaryPath string  `yaml:"summary,omitempty"`
	Duration    string  `yaml:"duration,omitempty"`
}

// RunManifest is the full record of one pipeline run.
type RunManifest struct {
	RunID       string         `yaml:"run_id"`
	StartedAt   time.Time      `yaml:"started_at"`
	FinishedAt  time.Time      `yaml:"finished_at"`
	PeriodStart string         `yaml:"period_start"`
	PeriodEnd   string         `yaml:"period_end"`
	Backend     string         `yaml:"backend,omitempty"`
	DraftPath   string         `yaml:"draft,omitempty"`
	Sources     []SourceRecord `yaml:"sources"`
	Stashes     []string       `yaml:"stashes,omitempty"`
	Warnings    []string       `yaml:"warnings,omitempty"`
}

// New starts a manifest with a fresh run ID.
func New(started time.Time) *RunManifest {
	return &RunManifest{
		RunID:     uuid.NewString(),
		StartedAt: started,
	}
}

// AddStash records a stash created during the run.
func (m *RunManifest) AddStash(path string) {
	if path != "" {
		m.Stashes = append(m.Stashes, path)
	}
}

// Warn records a non-fatal problem (stale export that could not be
// refreshed, unreadable document, failed summary).
func (m *RunManifest) Warn(format string, args ...any) {
	m.Warnings = append(m.Warnings, fmt.Sprintf(format, args...))
}

// Degraded reports whether any source failed or any warning was
// recorded. The process still exits 0; degraded is surfaced in output
// and in this file.
func (m *RunManifest) Degraded() bool {
	if len(m.Warnings) > 0 {
		return true
	}
	for _, s := range m.Sources {
		if s.Outcome == OutcomeFailed {
			return true
		}
	}
	return false
}

// Path returns the manifest location inside a context directory.
func Path(contextDir string) string {
	return filepath.Join(contextDir, "run_manifest.yaml")
}

// Write marshals the manifest into the context directory. The previous
// run's manifest is stashed, not overwritten, like every other output.
func (m *RunManifest) Write(mgr *workdir.Manager, contextDir string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if _, err := mgr.StashAndWrite(Path(contextDir), data); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Load reads the manifest of a prior run, if present.
func Load(contextDir string) (*RunManifest, error) {
	data, err := os.ReadFile(Path(contextDir))
	if err != nil {
		return nil, err
	}
	var m RunManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}
