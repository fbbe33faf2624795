package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmalloy/mrc/internal/period"
	"github.com/hmalloy/mrc/internal/source"
	"github.com/hmalloy/mrc/internal/summarize"
	"github.com/hmalloy/mrc/internal/workdir"
)

func testPeriod(t *testing.T) period.Period {
	t.Helper()
	p, err := period.New(
		time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return p
}

// fakeSummarizer records calls and can fail for selected kinds.
type fakeSummarizer struct {
	mu       sync.Mutex
	calls    []source.Kind
	failFor  map[source.Kind]error
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeSummarizer) Name() string { return "fake" }

func (f *fakeSummarizer) Summarize(_ context.Context, req summarize.Request) (string, error) {
	cur := f.inflight.Add(1)
	for {
		p := f.peak.Load()
		if cur <= p || f.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	f.inflight.Add(-1)

	f.mu.Lock()
	f.calls = append(f.calls, req.Kind)
	f.mu.Unlock()

	if err, ok := f.failFor[req.Kind]; ok {
		return "", err
	}
	return fmt.Sprintf("summary of %s (%d bytes)", req.Kind, len(req.Content)), nil
}

func setupContext(t *testing.T, p period.Period, bundles map[source.Kind]string) (*workdir.Manager, workdir.Dir) {
	t.Helper()
	mgr := workdir.NewManager(t.TempDir())
	dir, err := mgr.Ensure(p)
	require.NoError(t, err)
	for kind, content := range bundles {
		require.NoError(t, os.WriteFile(dir.BundlePath(string(kind), p), []byte(content), 0644))
	}
	return mgr, dir
}

func TestDispatchSummarizesPresentBundles(t *testing.T) {
	p := testPeriod(t)
	mgr, dir := setupContext(t, p, map[source.Kind]string{
		source.KindNotes: "notes bundle",
		source.KindEmail: "email bundle",
	})

	fake := &fakeSummarizer{}
	d := &Dispatcher{Summarizer: fake, Manager: mgr, Concurrency: 2}
	results := d.Dispatch(context.Background(), dir, p, source.Kinds())

	require.Len(t, results, 4)
	byKind := map[source.Kind]SummaryResult{}
	for _, r := range results {
		byKind[r.Kind] = r
	}

	// Present bundles get summaries on disk.
	for _, k := range []source.Kind{source.KindNotes, source.KindEmail} {
		r := byKind[k]
		require.NoError(t, r.Err)
		data, err := os.ReadFile(r.SummaryPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), string(k))
	}

	// Absent bundles are skipped, not failed.
	for _, k := range []source.Kind{source.KindTranscript, source.KindMinutes} {
		r := byKind[k]
		assert.NoError(t, r.Err)
		assert.Empty(t, r.SummaryPath)
	}
}

func TestDispatchConcurrencyCap(t *testing.T) {
	p := testPeriod(t)
	bundles := map[source.Kind]string{}
	for _, k := range source.Kinds() {
		bundles[k] = "bundle"
	}
	mgr, dir := setupContext(t, p, bundles)

	fake := &fakeSummarizer{}
	d := &Dispatcher{Summarizer: fake, Manager: mgr, Concurrency: 1}
	d.Dispatch(context.Background(), dir, p, source.Kinds())

	assert.LessOrEqual(t, fake.peak.Load(), int32(1))
	assert.Len(t, fake.calls, 4)
}

func TestDispatchIsolatesFailures(t *testing.T) {
	p := testPeriod(t)
	mgr, dir := setupContext(t, p, map[source.Kind]string{
		source.KindNotes:      "notes bundle",
		source.KindTranscript: "transcript bundle",
	})

	fake := &fakeSummarizer{failFor: map[source.Kind]error{
		source.KindTranscript: errors.New("model unavailable"),
	}}
	d := &Dispatcher{Summarizer: fake, Manager: mgr, Concurrency: 2}
	results := d.Dispatch(context.Background(), dir, p, source.Kinds())

	byKind := map[source.Kind]SummaryResult{}
	for _, r := range results {
		byKind[r.Kind] = r
	}
	assert.NoError(t, byKind[source.KindNotes].Err)
	assert.True(t, byKind[source.KindTranscript].Failed())
}

func TestDispatchStashesPriorSummary(t *testing.T) {
	p := testPeriod(t)
	mgr, dir := setupContext(t, p, map[source.Kind]string{source.KindNotes: "v2"})

	prior := dir.SummaryPath(string(source.KindNotes), p)
	require.NoError(t, os.WriteFile(prior, []byte("v1 summary"), 0644))

	fake := &fakeSummarizer{}
	d := &Dispatcher{Summarizer: fake, Manager: mgr, Concurrency: 2}
	results := d.Dispatch(context.Background(), dir, p, []source.Kind{source.KindNotes})

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.NotEmpty(t, results[0].StashPath)
	old, err := os.ReadFile(results[0].StashPath)
	require.NoError(t, err)
	assert.Equal(t, "v1 summary", string(old))
}

func TestHeadings(t *testing.T) {
	md := "# Report\n\n## Correspondence\n\ntext\n\n## Board Meetings\n\nmore\n"
	assert.Equal(t, []string{"Correspondence", "Board Meetings"}, Headings(md))
}

func TestKindOrderFollowsPriorReport(t *testing.T) {
	order := KindOrder([]string{"Correspondence", "Board Meetings", "Notes & Activity"})
	assert.Equal(t, []source.Kind{
		source.KindEmail, source.KindMinutes, source.KindNotes, source.KindTranscript,
	}, order)
}

func TestKindOrderDefaultsWithoutPrior(t *testing.T) {
	assert.Equal(t, source.Kinds(), KindOrder(nil))
}

func TestFindPriorReport(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "20250901-monthly-report.md")
	recent := filepath.Join(dir, "20251001-monthly-report.md")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0644))
	require.NoError(t, os.WriteFile(recent, []byte("## Correspondence\n"), 0644))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	path, content, ok := FindPriorReport(dir)
	require.True(t, ok)
	assert.Equal(t, recent, path)
	assert.Contains(t, content, "Correspondence")

	_, _, ok = FindPriorReport(t.TempDir())
	assert.False(t, ok)
}

func TestSynthesizeOffline(t *testing.T) {
	p := testPeriod(t)
	mgr, dir := setupContext(t, p, nil)
	_ = mgr

	notesSummary := dir.SummaryPath(string(source.KindNotes), p)
	require.NoError(t, os.WriteFile(notesSummary, []byte("- shipped the ingestion fix"), 0644))

	s := &Synthesizer{}
	draft, err := s.Synthesize(context.Background(), SynthesisInput{
		Period: p,
		Results: []SummaryResult{
			{Kind: source.KindNotes, SummaryPath: notesSummary},
			{Kind: source.KindEmail, Err: errors.New("export corrupt")},
		},
		AdditionalNotes: "Remember the offsite planning.",
	})
	require.NoError(t, err)

	assert.Contains(t, draft, "# Monthly Report DRAFT - 2025-11-01 to 2025-12-01")
	assert.Contains(t, draft, "## Notes & Activity")
	assert.Contains(t, draft, "shipped the ingestion fix")
	assert.Contains(t, draft, "_Source unavailable this period: export corrupt_")
	assert.Contains(t, draft, "## Additional Notes")
	assert.Contains(t, draft, "offsite planning")
}

// fakeCompleter returns a canned draft body.
type fakeCompleter struct{ prompt string }

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return "## Highlights\n\nmerged draft body", nil
}

func TestSynthesizeWithCompleterFlagsFailures(t *testing.T) {
	p := testPeriod(t)
	_, dir := setupContext(t, p, nil)

	notesSummary := dir.SummaryPath(string(source.KindNotes), p)
	require.NoError(t, os.WriteFile(notesSummary, []byte("- item"), 0644))

	fc := &fakeCompleter{}
	s := &Synthesizer{Completer: fc}
	draft, err := s.Synthesize(context.Background(), SynthesisInput{
		Period:        p,
		PriorHeadings: []string{"Highlights"},
		Results: []SummaryResult{
			{Kind: source.KindNotes, SummaryPath: notesSummary},
			{Kind: source.KindMinutes, Err: errors.New("summarizer down")},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, fc.prompt, "Highlights")
	assert.Contains(t, fc.prompt, "- item")
	assert.Contains(t, draft, "merged draft body")
	assert.Contains(t, draft, "## Sources Unavailable This Period")
	assert.Contains(t, draft, "minutes: summarizer down")
}

func TestSynthesizeNothingToDo(t *testing.T) {
	p := testPeriod(t)
	s := &Synthesizer{}
	_, err := s.Synthesize(context.Background(), SynthesisInput{Period: p})
	require.Error(t, err)
}

func TestReadAdditionalNotes(t *testing.T) {
	p := testPeriod(t)
	_, dir := setupContext(t, p, nil)

	require.NoError(t, os.WriteFile(filepath.Join(dir.AdditionalNotes(), "b.md"), []byte("second"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir.AdditionalNotes(), "a.md"), []byte("first"), 0644))

	assert.Equal(t, "first\n\nsecond", ReadAdditionalNotes(dir))
}
