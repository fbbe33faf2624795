// Package report turns consolidated bundles into intermediate summaries
// and synthesizes the final draft. Summarization fans out one worker per
// bundle under a concurrency cap; synthesis waits for every worker to
// finish so the draft never races a summary write.
package report

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hmalloy/mrc/internal/period"
	"github.com/hmalloy/mrc/internal/source"
	"github.com/hmalloy/mrc/internal/summarize"
	"github.com/hmalloy/mrc/internal/workdir"
)

// SummaryResult holds the outcome of summarizing a single bundle.
type SummaryResult struct {
	Kind        source.Kind
	BundlePath  string
	SummaryPath string
	StashPath   string // prior summary stashed before overwrite, if any
	Backend     string
	Duration    time.Duration
	Err         error
}

// Failed reports whether this source's summary is unusable.
func (r SummaryResult) Failed() bool { return r.Err != nil }

// Dispatcher fans summarization out over the bundles present in a
// context directory.
type Dispatcher struct {
	Summarizer  summarize.Summarizer
	Manager     *workdir.Manager
	Concurrency int
}

// Dispatch summarizes every present bundle concurrently and returns one
// result per requested kind, in the order given. A kind whose bundle is
// absent gets a result with SummaryPath == "" and no error: nothing in
// the period is not a failure. All workers have finished when Dispatch
// returns.
func (d *Dispatcher) Dispatch(ctx context.Context, dir workdir.Dir, p period.Period, kinds []source.Kind) []SummaryResult {
	results := make([]SummaryResult, len(kinds))
	concurrency := d.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, k := range kinds {
		wg.Add(1)
		go func(idx int, kind source.Kind) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = d.summarizeOne(ctx, dir, p, kind)
		}(i, k)
	}

	wg.Wait()
	return results
}

func (d *Dispatcher) summarizeOne(ctx context.Context, dir workdir.Dir, p period.Period, kind source.Kind) SummaryResult {
	res := SummaryResult{
		Kind:       kind,
		BundlePath: dir.BundlePath(string(kind), p),
		Backend:    d.Summarizer.Name(),
	}

	data, err := os.ReadFile(res.BundlePath)
	if os.IsNotExist(err) {
		res.BundlePath = ""
		return res
	}
	if err != nil {
		res.Err = fmt.Errorf("reading bundle: %w", err)
		return res
	}

	t0 := time.Now()
	summary, err := d.Summarizer.Summarize(ctx, summarize.Request{
		Kind:        kind,
		PeriodLabel: p.Label(),
		Content:     string(data),
	})
	res.Duration = time.Since(t0)
	if err != nil {
		res.Err = fmt.Errorf("summarizing %s: %w", kind, err)
		return res
	}

	path := dir.SummaryPath(string(kind), p)
	stash, err := d.Manager.StashAndWrite(path, []byte(summary))
	if err != nil {
		res.Err = fmt.Errorf("writing summary: %w", err)
		return res
	}
	res.SummaryPath = path
	res.StashPath = stash
	return res
}
