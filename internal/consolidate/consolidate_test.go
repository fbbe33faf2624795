package consolidate

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmalloy/mrc/internal/period"
	"github.com/hmalloy/mrc/internal/source"
	"github.com/hmalloy/mrc/internal/workdir"
)

func mustPeriod(t *testing.T, start, end time.Time) period.Period {
	t.Helper()
	p, err := period.New(start, end)
	require.NoError(t, err)
	return p
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFilterHalfOpenBoundaries(t *testing.T) {
	p := mustPeriod(t, day(2025, 11, 1), day(2026, 1, 1))
	records := []source.Record{
		{Timestamp: day(2025, 10, 31), Text: "before"},
		{Timestamp: day(2025, 11, 1), Text: "at start"},
		{Timestamp: day(2025, 12, 31), Text: "inside"},
		{Timestamp: day(2026, 1, 1), Text: "at end"},
		{Text: "no timestamp"},
	}

	res := Filter(records, p)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "at start", res.Records[0].Text)
	assert.Equal(t, "inside", res.Records[1].Text)
	assert.Equal(t, 1, res.NoTimestamp)
	assert.Equal(t, 2, res.OutOfPeriod)
}

// The scenario from the design discussion: period [2025-11-01, 2026-01-01),
// records on 10-31, 11-15 and 12-31; the bundle holds the latter two in order.
func TestConsolidationScenario(t *testing.T) {
	p := mustPeriod(t, day(2025, 11, 1), day(2026, 1, 1))
	records := []source.Record{
		{Timestamp: day(2025, 10, 31), Text: "october note", Origin: "a.md"},
		{Timestamp: day(2025, 11, 15), Text: "november note", Origin: "b.md"},
		{Timestamp: day(2025, 12, 31), Text: "december note", Origin: "c.md"},
	}

	res := Filter(records, p)
	data := string(Render(res.Records))

	assert.NotContains(t, data, "october note")
	novIdx := strings.Index(data, "november note")
	decIdx := strings.Index(data, "december note")
	require.GreaterOrEqual(t, novIdx, 0)
	require.GreaterOrEqual(t, decIdx, 0)
	assert.Less(t, novIdx, decIdx)
}

func TestRenderChronologicalWithStableTies(t *testing.T) {
	ts := day(2025, 11, 15)
	records := []source.Record{
		{Timestamp: ts.Add(time.Hour), Text: "later"},
		{Timestamp: ts, Text: "tie one", Origin: "one.md"},
		{Timestamp: ts, Text: "tie two", Origin: "two.md"},
	}

	data := string(Render(records))
	oneIdx := strings.Index(data, "tie one")
	twoIdx := strings.Index(data, "tie two")
	laterIdx := strings.Index(data, "later")
	assert.Less(t, oneIdx, twoIdx)
	assert.Less(t, twoIdx, laterIdx)
}

func TestRenderDeterministic(t *testing.T) {
	records := []source.Record{
		{Timestamp: day(2025, 11, 15), TopicHint: "Board", Text: "body", Origin: "x.md"},
		{Timestamp: time.Date(2025, 11, 16, 9, 30, 0, 0, time.UTC), Text: "second"},
	}
	first := Render(records)
	second := Render(records)
	assert.Equal(t, first, second)

	s := string(first)
	assert.Contains(t, s, "Date: 2025-11-15\n")
	assert.Contains(t, s, "Date: 2025-11-16 09:30:00")
	assert.Contains(t, s, "Topic: Board")
	assert.Contains(t, s, "Source: x.md")
}

func TestRenderEmpty(t *testing.T) {
	assert.Nil(t, Render(nil))
}

// fakeSource lets tests drive Run without touching real exports.
type fakeSource struct {
	kind source.Kind
	docs []source.Document
	fail map[string]error
}

func (f *fakeSource) Kind() source.Kind { return f.kind }

func (f *fakeSource) Documents() ([]source.Document, error) { return f.docs, nil }

func (f *fakeSource) Normalize(doc source.Document) ([]source.Record, error) {
	if err, ok := f.fail[doc.Path]; ok {
		return nil, err
	}
	return []source.Record{{Timestamp: doc.ModTime, Text: doc.Content, Origin: doc.Path}}, nil
}

func TestRunWritesBundleAndIsolatesDocFailures(t *testing.T) {
	base := t.TempDir()
	m := workdir.NewManager(base)
	p := mustPeriod(t, day(2025, 11, 1), day(2026, 1, 1))
	dir, err := m.Ensure(p)
	require.NoError(t, err)

	src := &fakeSource{
		kind: source.KindNotes,
		docs: []source.Document{
			{Path: "good.md", Content: "good content", ModTime: day(2025, 11, 15)},
			{Path: "bad.md", Content: "bad", ModTime: day(2025, 11, 16)},
			{Path: "also-good.md", Content: "more content", ModTime: day(2025, 11, 17)},
		},
		fail: map[string]error{"bad.md": &source.SourceError{Kind: source.KindNotes, Path: "bad.md"}},
	}

	c := New(m)
	res, err := c.Run(context.Background(), src, dir, p)
	require.NoError(t, err)

	require.Len(t, res.DocErrors, 1)
	assert.Equal(t, 3, res.Documents)
	require.FileExists(t, res.BundlePath)

	data, err := os.ReadFile(res.BundlePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "good content")
	assert.Contains(t, string(data), "more content")
	assert.NotContains(t, string(data), "bad")
}

// A document that could not be read at all (Document.Err set by the
// source) is reported alongside normalization failures; the readable
// documents still make the bundle.
func TestRunReportsUnreadableDocuments(t *testing.T) {
	base := t.TempDir()
	m := workdir.NewManager(base)
	p := mustPeriod(t, day(2025, 11, 1), day(2026, 1, 1))
	dir, err := m.Ensure(p)
	require.NoError(t, err)

	readErr := &source.SourceError{Kind: source.KindEmail, Path: "batch_b.md",
		Err: errors.New("permission denied")}
	src := &fakeSource{
		kind: source.KindEmail,
		docs: []source.Document{
			{Path: "batch_a.md", Content: "budget approved", ModTime: day(2025, 11, 20)},
			{Path: "batch_b.md", Err: readErr},
		},
	}

	res, err := New(m).Run(context.Background(), src, dir, p)
	require.NoError(t, err)

	require.Len(t, res.DocErrors, 1)
	assert.ErrorIs(t, res.DocErrors[0], readErr)
	assert.Equal(t, 2, res.Documents)
	assert.Equal(t, 1, res.Records)

	data, err := os.ReadFile(res.BundlePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "budget approved")
}

func TestRunIdempotentRerunStashesOnce(t *testing.T) {
	base := t.TempDir()
	m := workdir.NewManager(base)
	p := mustPeriod(t, day(2025, 11, 1), day(2026, 1, 1))
	dir, err := m.Ensure(p)
	require.NoError(t, err)

	src := &fakeSource{
		kind: source.KindNotes,
		docs: []source.Document{
			{Path: "note.md", Content: "stable content", ModTime: day(2025, 11, 15)},
		},
	}

	c := New(m)
	first, err := c.Run(context.Background(), src, dir, p)
	require.NoError(t, err)
	assert.Empty(t, first.StashPath)
	firstData, err := os.ReadFile(first.BundlePath)
	require.NoError(t, err)

	second, err := c.Run(context.Background(), src, dir, p)
	require.NoError(t, err)
	require.NotEmpty(t, second.StashPath)

	secondData, err := os.ReadFile(second.BundlePath)
	require.NoError(t, err)
	assert.Equal(t, firstData, secondData, "re-run with unchanged input must be byte-identical")

	stashed, err := os.ReadFile(second.StashPath)
	require.NoError(t, err)
	assert.Equal(t, firstData, stashed)
}

func TestRunNothingInPeriodWritesNoBundle(t *testing.T) {
	base := t.TempDir()
	m := workdir.NewManager(base)
	p := mustPeriod(t, day(2025, 11, 1), day(2026, 1, 1))
	dir, err := m.Ensure(p)
	require.NoError(t, err)

	src := &fakeSource{
		kind: source.KindEmail,
		docs: []source.Document{
			{Path: "old.md", Content: "ancient history", ModTime: day(2024, 1, 1)},
		},
	}

	res, err := New(m).Run(context.Background(), src, dir, p)
	require.NoError(t, err)
	assert.Empty(t, res.BundlePath)
	assert.Equal(t, 1, res.Filter.OutOfPeriod)
	assert.NoFileExists(t, dir.BundlePath("email", p))
}
