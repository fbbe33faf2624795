// Package consolidate filters normalized records to the reporting period
// and serializes them into one ordered text bundle per source kind.
package consolidate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hmalloy/mrc/internal/period"
	"github.com/hmalloy/mrc/internal/source"
	"github.com/hmalloy/mrc/internal/telemetry"
	"github.com/hmalloy/mrc/internal/workdir"
)

// FilterResult reports what the period filter kept and, as importantly,
// what it excluded. Exclusion counts surface systematic timestamp-parsing
// failures that would otherwise look like a quiet month.
type FilterResult struct {
	Records []source.Record

	// NoTimestamp counts records whose timestamp could not be extracted.
	NoTimestamp int
	// OutOfPeriod counts records dated outside [start, end).
	OutOfPeriod int
}

// Filter retains exactly the records with period.Start <= ts < period.End.
// Input order is preserved.
func Filter(records []source.Record, p period.Period) FilterResult {
	var res FilterResult
	for _, r := range records {
		switch {
		case r.Timestamp.IsZero():
			res.NoTimestamp++
		case !p.Contains(r.Timestamp):
			res.OutOfPeriod++
		default:
			res.Records = append(res.Records, r)
		}
	}
	return res
}

const blockSeparator = "--------------------------------------------------------------------------------"

// Render serializes filtered records into the bundle text: chronological
// order with ties broken by original document order, one dated block per
// record. Rendering the same records always yields identical bytes.
func Render(records []source.Record) []byte {
	sorted := make([]source.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var blocks []string
	for _, r := range sorted {
		var header strings.Builder
		fmt.Fprintf(&header, "Date: %s", formatStamp(r))
		if r.Origin != "" {
			fmt.Fprintf(&header, "\nSource: %s", r.Origin)
		}
		if r.TopicHint != "" {
			fmt.Fprintf(&header, "\nTopic: %s", r.TopicHint)
		}
		blocks = append(blocks, header.String(), r.Text, blockSeparator)
	}
	if len(blocks) == 0 {
		return nil
	}
	return []byte(strings.Join(blocks, "\n\n") + "\n")
}

// formatStamp keeps date-only timestamps short; anything with a
// time-of-day keeps it.
func formatStamp(r source.Record) string {
	t := r.Timestamp
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// Result describes one source's consolidation outcome.
type Result struct {
	Kind       source.Kind
	BundlePath string
	StashPath  string

	Documents int
	Records   int
	Filter    FilterResult

	// DocErrors holds per-document normalization failures. They never
	// abort the source: the remaining documents still consolidate.
	DocErrors []error
}

// Consolidator runs normalize -> filter -> render -> stash-guarded
// atomic write for one source.
type Consolidator struct {
	Workdir *workdir.Manager
}

func New(m *workdir.Manager) *Consolidator {
	consolidateMetricsOnce.Do(initConsolidateMetrics)
	return &Consolidator{Workdir: m}
}

// Run consolidates one source into its bundle file for the period.
// When no records survive the filter, no bundle is written (and nothing
// is stashed): downstream treats an absent bundle as "nothing this
// period", not as an error.
func (c *Consolidator) Run(ctx context.Context, src source.Source, dir workdir.Dir, p period.Period) (*Result, error) {
	res := &Result{Kind: src.Kind()}

	docs, err := src.Documents()
	if err != nil {
		return res, fmt.Errorf("listing %s documents: %w", src.Kind(), err)
	}
	res.Documents = len(docs)

	var records []source.Record
	for _, doc := range docs {
		if doc.Err != nil {
			res.DocErrors = append(res.DocErrors, doc.Err)
			continue
		}
		recs, err := src.Normalize(doc)
		if err != nil {
			res.DocErrors = append(res.DocErrors, err)
			continue
		}
		records = append(records, recs...)
	}
	res.Records = len(records)

	res.Filter = Filter(records, p)

	kindAttr := attribute.String("mrc.source.kind", string(src.Kind()))
	if consolidateMetrics.records != nil {
		consolidateMetrics.records.Add(ctx, int64(res.Records), metric.WithAttributes(kindAttr))
		consolidateMetrics.excluded.Add(ctx, int64(res.Filter.NoTimestamp+res.Filter.OutOfPeriod),
			metric.WithAttributes(kindAttr))
	}

	data := Render(res.Filter.Records)
	path := dir.BundlePath(string(src.Kind()), p)
	if data == nil {
		// Nothing in period. Stash any bundle from a prior run so a stale
		// bundle never masquerades as this run's output.
		stash, err := c.Workdir.StashIfPresent(path)
		if err != nil {
			return res, fmt.Errorf("stashing empty %s bundle: %w", src.Kind(), err)
		}
		res.StashPath = stash
		return res, nil
	}

	stash, err := c.Workdir.StashAndWrite(path, data)
	if err != nil {
		return res, fmt.Errorf("writing bundle for %s: %w", src.Kind(), err)
	}
	if consolidateMetrics.bundles != nil {
		consolidateMetrics.bundles.Add(ctx, 1, metric.WithAttributes(kindAttr))
	}
	res.BundlePath = path
	res.StashPath = stash
	return res, nil
}

// consolidateMetrics holds lazily-initialized OTel instruments for the
// consolidation stage.
var consolidateMetrics struct {
	records  metric.Int64Counter
	excluded metric.Int64Counter
	bundles  metric.Int64Counter
}

var consolidateMetricsOnce sync.Once

func initConsolidateMetrics() {
	m := telemetry.Meter("github.com/hmalloy/mrc/consolidate")
	consolidateMetrics.records, _ = m.Int64Counter("mrc.consolidate.records",
		metric.WithDescription("Fact records normalized from source documents"),
		metric.WithUnit("{record}"),
	)
	consolidateMetrics.excluded, _ = m.Int64Counter("mrc.consolidate.excluded_records",
		metric.WithDescription("Records excluded by the period filter (undated or out of period)"),
		metric.WithUnit("{record}"),
	)
	consolidateMetrics.bundles, _ = m.Int64Counter("mrc.consolidate.bundles_written",
		metric.WithDescription("Consolidated bundle files written"),
		metric.WithUnit("{file}"),
	)
}
