package period

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func TestContainsHalfOpen(t *testing.T) {
	p, err := New(
		time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"before start", time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC), false},
		{"exactly start", time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), true},
		{"inside", time.Date(2025, 12, 15, 12, 0, 0, 0, time.UTC), true},
		{"last instant", time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC), true},
		{"exactly end", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Contains(tt.ts))
		})
	}
}

func TestNewRejectsInvertedPeriod(t *testing.T) {
	_, err := New(testNow, testNow)
	assert.Error(t, err)
	_, err = New(testNow.AddDate(0, 0, 1), testNow)
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	p, err := New(time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), testNow)
	require.NoError(t, err)
	assert.Equal(t, "20251101", p.Key())
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2025-11-01", time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)},
		{"20251101", time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)},
		{"01/11/2025", time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input, testNow)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s", got)
		})
	}
}

func TestParseDateNaturalLanguage(t *testing.T) {
	got, err := ParseDate("2 months ago", testNow)
	require.NoError(t, err)
	assert.Equal(t, time.November, got.Month())
	assert.Equal(t, 2025, got.Year())
}

func TestParseDateGarbage(t *testing.T) {
	_, err := ParseDate("not a date at all xyzzy", testNow)
	assert.Error(t, err)
}

func TestResolveExplicit(t *testing.T) {
	p, err := Resolve("2025-11-01", "", 60, testNow)
	require.NoError(t, err)
	assert.Equal(t, "20251101", p.Key())
	assert.True(t, p.End.Equal(testNow))
}

func TestResolveDefaultLookback(t *testing.T) {
	p, err := Resolve("", "", 60, testNow)
	require.NoError(t, err)
	assert.True(t, p.Start.Equal(testNow.AddDate(0, 0, -60)))
}

func TestResolveFromPriorReport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "20251101-monthly-report-DRAFT.md"), []byte("# report"), 0o644))

	p, err := Resolve("", dir, 60, testNow)
	require.NoError(t, err)
	assert.Equal(t, "20251101", p.Key())
}

func TestResolveFutureExplicitAborts(t *testing.T) {
	// Parses fine but yields start >= end; still a resolution failure.
	_, err := Resolve("2026-06-01", "", 60, testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvable)
}

func TestResolveBadExplicitAborts(t *testing.T) {
	_, err := Resolve("xyzzy garbage", "", 60, testNow)
	assert.ErrorIs(t, err, ErrUnresolvable)
}

func TestPriorReportDatePrefersNewestFile(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "20250901-monthly-report.md")
	newer := filepath.Join(dir, "20251101-monthly-report.md")
	require.NoError(t, os.WriteFile(older, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("new"), 0o644))
	// Make mtimes unambiguous regardless of write order.
	require.NoError(t, os.Chtimes(older, time.Time{}, testNow.AddDate(0, -2, 0)))
	require.NoError(t, os.Chtimes(newer, time.Time{}, testNow.AddDate(0, -1, 0)))

	got, ok := PriorReportDate(dir)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestPriorReportDateEmpty(t *testing.T) {
	_, ok := PriorReportDate(t.TempDir())
	assert.False(t, ok)
	_, ok = PriorReportDate("")
	assert.False(t, ok)
}

func TestDatestampFromFilename(t *testing.T) {
	tests := []struct {
		name  string
		want  time.Time
		found bool
	}{
		{"20250703-BoD1-Phil.rtf", time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC), true},
		{"250703-standup.md", time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC), true},
		{"meeting-notes.rtf", time.Time{}, false},
		{"99999999-bad.rtf", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DatestampFromFilename(tt.name)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.True(t, got.Equal(tt.want), "got %s", got)
			}
		})
	}
}
