// Package pipeline orchestrates a full run: resolve the period, ensure
// the context directory, consolidate each source in parallel, fan out
// summarization, synthesize the draft, and record a run manifest.
//
// Failure discipline: only configuration-level problems abort a run.
// Everything else - a stale export that will not refresh, an unreadable
// document, a failed summary - degrades that one source, is recorded in
// the manifest, and the run still exits successfully.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hmalloy/mrc/internal/config"
	"github.com/hmalloy/mrc/internal/consolidate"
	"github.com/hmalloy/mrc/internal/manifest"
	"github.com/hmalloy/mrc/internal/period"
	"github.com/hmalloy/mrc/internal/report"
	"github.com/hmalloy/mrc/internal/source"
	"github.com/hmalloy/mrc/internal/staleness"
	"github.com/hmalloy/mrc/internal/summarize"
	"github.com/hmalloy/mrc/internal/workdir"
)

// Options select what a run does. The zero value is a full run over all
// configured sources.
type Options struct {
	// Date is the raw --date value; empty means resolve from the prior
	// report or the default lookback.
	Date string

	// Kinds restricts the run to a subset of sources. Empty means all.
	Kinds []source.Kind

	// ConsolidateOnly stops after bundles are written.
	ConsolidateOnly bool

	// ReportOnly skips consolidation and summarizes whatever bundles the
	// context directory already holds.
	ReportOnly bool

	// Offline forces the extractive summarizer and offline synthesis
	// even when an API key is available.
	Offline bool

	// DryRun resolves the period and reports staleness without writing
	// anything.
	DryRun bool
}

// Result is what a run produced.
type Result struct {
	Period   period.Period
	Dir      workdir.Dir
	Manifest *manifest.RunManifest
	// DraftPath is set when synthesis ran.
	DraftPath string
}

// Pipeline wires the stages together for one configuration.
type Pipeline struct {
	Config  *config.Config
	Manager *workdir.Manager

	// Now anchors period resolution and staleness; tests pin it.
	Now func() time.Time

	// Progress receives human-readable stage lines; nil discards them.
	Progress io.Writer
}

func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		Config:   cfg,
		Manager:  workdir.NewManager(cfg.WorkingsBase),
		Now:      time.Now,
		Progress: io.Discard,
	}
}

func (p *Pipeline) progressf(format string, args ...any) {
	if p.Progress != nil {
		fmt.Fprintf(p.Progress, format+"\n", args...)
	}
}

// sourceFor builds the source implementation for a kind, or nil when
// that source is not configured.
func (p *Pipeline) sourceFor(kind source.Kind) source.Source {
	cfg := p.Config
	switch kind {
	case source.KindNotes:
		if cfg.NotesExportDir != "" {
			return source.NewNotesSource(cfg.NotesExportDir)
		}
	case source.KindTranscript:
		if cfg.TranscriptsDir != "" {
			return source.NewTranscriptSource(cfg.TranscriptsDir)
		}
	case source.KindMinutes:
		if len(cfg.MinutesDirs) > 0 {
			return source.NewMinutesSource(cfg.MinutesDirs, cfg.MaxMinutesFileKB)
		}
	case source.KindEmail:
		if cfg.EmailExportDir != "" {
			return source.NewEmailSource(cfg.EmailExportDir)
		}
	}
	return nil
}

// exportPaths returns the filesystem locations whose freshness gates a
// source kind.
func (p *Pipeline) exportPaths(kind source.Kind) []string {
	cfg := p.Config
	switch kind {
	case source.KindNotes:
		return []string{cfg.NotesExportDir}
	case source.KindTranscript:
		return []string{cfg.TranscriptsDir}
	case source.KindMinutes:
		return cfg.MinutesDirs
	case source.KindEmail:
		return []string{cfg.EmailExportDir}
	}
	return nil
}

func (p *Pipeline) kinds(opts Options) []source.Kind {
	if len(opts.Kinds) == 0 {
		return source.Kinds()
	}
	return opts.Kinds
}

// Run executes the pipeline per opts. The returned error is non-nil
// only for configuration-level failures; per-source degradation lives
// in the result's manifest.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}

	now := p.Now()
	per, err := period.Resolve(opts.Date, p.Config.ReportsDir, p.Config.LookbackDays, now)
	if err != nil {
		return nil, err
	}
	p.progressf("period %s", per)

	res := &Result{Period: per}
	m := manifest.New(now)
	m.PeriodStart = per.Start.Format("2006-01-02")
	m.PeriodEnd = per.End.Format("2006-01-02")
	res.Manifest = m

	if opts.DryRun {
		p.dryRun(per, now, opts, m)
		return res, nil
	}

	dir, err := p.Manager.Ensure(per)
	if err != nil {
		return nil, fmt.Errorf("preparing context dir: %w", err)
	}
	res.Dir = dir
	p.progressf("context %s", dir.Path)

	if !opts.ReportOnly {
		p.consolidateAll(ctx, dir, per, now, opts, m)
	}

	if !opts.ConsolidateOnly {
		if err := p.report(ctx, dir, per, opts, m, res); err != nil {
			return nil, err
		}
	}

	m.FinishedAt = p.Now()
	if err := m.Write(p.Manager, dir.Path); err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}
	return res, nil
}

// dryRun reports staleness and planned work without touching disk.
func (p *Pipeline) dryRun(per period.Period, now time.Time, opts Options, m *manifest.RunManifest) {
	gate := staleness.NewGate(p.Config.StalenessThreshold.Std(), now)
	for _, kind := range p.kinds(opts) {
		if p.sourceFor(kind) == nil {
			m.Sources = append(m.Sources, manifest.SourceRecord{
				Kind: string(kind), Outcome: manifest.OutcomeSkipped,
			})
			continue
		}
		rec := manifest.SourceRecord{Kind: string(kind), Outcome: manifest.OutcomeSucceeded}
		for _, path := range p.exportPaths(kind) {
			if gate.IsStale(path) {
				rec.Outcome = manifest.OutcomeStaleButUsed
			}
		}
		m.Sources = append(m.Sources, rec)
	}
	m.FinishedAt = p.Now()
}

// consolidateAll fans consolidation out one goroutine per source.
// Sources are isolated: a failure records the outcome and moves on.
func (p *Pipeline) consolidateAll(ctx context.Context, dir workdir.Dir, per period.Period, now time.Time, opts Options, m *manifest.RunManifest) {
	kinds := p.kinds(opts)
	gate := staleness.NewGate(p.Config.StalenessThreshold.Std(), now)
	reexport := &staleness.ReExporter{Commands: p.Config.Exporters}
	cons := consolidate.New(p.Manager)

	records := make([]manifest.SourceRecord, len(kinds))
	stashes := make([]string, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Config.Concurrency)

	for i, kind := range kinds {
		g.Go(func() error {
			records[i], stashes[i] = p.consolidateOne(gctx, cons, gate, reexport, dir, per, kind)
			return nil
		})
	}
	_ = g.Wait()

	for i, rec := range records {
		m.Sources = append(m.Sources, rec)
		m.AddStash(stashes[i])
		if rec.Outcome == manifest.OutcomeStaleButUsed {
			m.Warn("%s export was stale and could not be refreshed", rec.Kind)
		}
		p.progressf("consolidate %s: %s (%d records)", rec.Kind, rec.Outcome, rec.Records)
	}
}

func (p *Pipeline) consolidateOne(ctx context.Context, cons *consolidate.Consolidator, gate *staleness.Gate, reexport *staleness.ReExporter, dir workdir.Dir, per period.Period, kind source.Kind) (manifest.SourceRecord, string) {
	rec := manifest.SourceRecord{Kind: string(kind)}

	src := p.sourceFor(kind)
	if src == nil {
		rec.Outcome = manifest.OutcomeSkipped
		return rec, ""
	}

	stale := false
	for _, path := range p.exportPaths(kind) {
		if !gate.IsStale(path) {
			continue
		}
		if !reexport.Has(string(kind)) {
			stale = true
			continue
		}
		if err := reexport.ReExport(ctx, string(kind)); err != nil {
			stale = true
			rec.Error = err.Error()
			break
		}
		// The exporter ran; trust its output rather than re-statting
		// against the original run clock.
	}

	t0 := time.Now()
	out, err := cons.Run(ctx, src, dir, per)
	rec.Duration = time.Since(t0).Round(time.Millisecond).String()
	if ms, ok := src.(*source.MinutesSource); ok {
		rec.Oversized = ms.Oversized
	}
	rec.Documents = out.Documents
	rec.Records = out.Records
	rec.NoTimestamp = out.Filter.NoTimestamp
	rec.OutOfPeriod = out.Filter.OutOfPeriod
	rec.BundlePath = out.BundlePath
	if err != nil {
		rec.Outcome = manifest.OutcomeFailed
		rec.Error = err.Error()
		return rec, out.StashPath
	}
	for _, docErr := range out.DocErrors {
		rec.Error = docErr.Error() // last one wins; all are in the bundle's gap
	}

	switch {
	case stale:
		rec.Outcome = manifest.OutcomeStaleButUsed
	default:
		rec.Outcome = manifest.OutcomeSucceeded
	}
	return rec, out.StashPath
}

// report runs dispatch and synthesis over whatever bundles exist.
func (p *Pipeline) report(ctx context.Context, dir workdir.Dir, per period.Period, opts Options, m *manifest.RunManifest, res *Result) error {
	summarizer, completer := p.backend(opts, m)
	m.Backend = summarizer.Name()

	d := &report.Dispatcher{
		Summarizer:  summarizer,
		Manager:     p.Manager,
		Concurrency: p.Config.Concurrency,
	}
	results := d.Dispatch(ctx, dir, per, p.kinds(opts))

	byKind := map[string]*manifest.SourceRecord{}
	for i := range m.Sources {
		byKind[m.Sources[i].Kind] = &m.Sources[i]
	}
	for _, r := range results {
		rec := byKind[string(r.Kind)]
		if rec == nil {
			outcome := manifest.OutcomeSucceeded
			if r.SummaryPath == "" && !r.Failed() {
				outcome = manifest.OutcomeSkipped
			}
			m.Sources = append(m.Sources, manifest.SourceRecord{Kind: string(r.Kind), Outcome: outcome})
			rec = &m.Sources[len(m.Sources)-1]
		}
		rec.SummaryPath = r.SummaryPath
		m.AddStash(r.StashPath)
		if r.Failed() {
			rec.Outcome = manifest.OutcomeFailed
			rec.Error = r.Err.Error()
		}
		p.progressf("summarize %s: %s", r.Kind, summaryStatus(r))
	}

	var priorHeadings []string
	if _, content, ok := report.FindPriorReport(p.Config.ReportsDir); ok {
		priorHeadings = report.Headings(content)
	}

	syn := &report.Synthesizer{Completer: completer}
	draft, err := syn.Synthesize(ctx, report.SynthesisInput{
		Period:          per,
		Results:         results,
		PriorHeadings:   priorHeadings,
		AdditionalNotes: report.ReadAdditionalNotes(dir),
	})
	if err != nil {
		// No summaries at all is a degraded-but-successful run; a failed
		// synthesis call with usable summaries is too. The summaries stay
		// on disk for a later `mrc report`.
		m.Warn("synthesis: %v", err)
		return nil
	}

	stash, err := p.Manager.StashAndWrite(dir.DraftPath(per), []byte(draft))
	if err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}
	m.AddStash(stash)
	res.DraftPath = dir.DraftPath(per)
	m.DraftPath = res.DraftPath
	p.progressf("draft %s", res.DraftPath)
	return nil
}

// backend picks the summarizer and synthesis completer: Anthropic when
// a key is available and the run is not offline, otherwise the
// deterministic extractive fallback with offline assembly.
func (p *Pipeline) backend(opts Options, m *manifest.RunManifest) (summarize.Summarizer, report.Completer) {
	if opts.Offline {
		return summarize.Extractive{}, nil
	}
	client, err := summarize.NewAnthropicClient("", p.Config.Model)
	if err != nil {
		if errors.Is(err, summarize.ErrAPIKeyRequired) {
			m.Warn("no API key; using extractive summaries")
		} else {
			m.Warn("anthropic client: %v", err)
		}
		return summarize.Extractive{}, nil
	}
	return client, client
}

func summaryStatus(r report.SummaryResult) string {
	switch {
	case r.Failed():
		return "failed: " + r.Err.Error()
	case r.SummaryPath == "":
		return "no bundle"
	default:
		return "ok"
	}
}
