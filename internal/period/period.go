// Package period models the half-open reporting period [start, end) and
// the layered date parsing used to resolve it.
//
// Resolution order for the period start:
//  1. Explicit --date value (absolute layouts, then natural language)
//  2. Embedded YYYYMMDD date of the most recent prior report
//  3. Default lookback (60 days before the run start)
package period

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ErrUnresolvable is returned when no period start can be determined.
// This is a configuration-level failure: the run aborts.
var ErrUnresolvable = errors.New("cannot resolve reporting period")

// Period is the half-open date range [Start, End) a report covers.
type Period struct {
	Start time.Time
	End   time.Time
}

// New builds a period and enforces Start < End.
func New(start, end time.Time) (Period, error) {
	if !start.Before(end) {
		return Period{}, fmt.Errorf("invalid period: start %s not before end %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return Period{Start: start, End: end}, nil
}

// Contains reports whether t falls inside the period: Start <= t < End.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Key returns the YYYYMMDD string that keys the context directory and all
// bundle filenames. Directory identity is a pure function of the start date.
func (p Period) Key() string {
	return p.Start.Format("20060102")
}

func (p Period) String() string {
	return fmt.Sprintf("[%s, %s)", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

// Label is the human-readable form used in prompts and report headers.
func (p Period) Label() string {
	return fmt.Sprintf("%s to %s", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

// absoluteLayouts are tried in order before natural-language parsing.
var absoluteLayouts = []string{
	"2006-01-02",
	"20060102",
	"02/01/2006",
}

// ParseDate parses a user-supplied date expression. Absolute layouts are
// tried first; anything else goes through natural-language parsing
// ("2 months ago", "last friday") anchored at now.
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("cannot parse date: %q (use YYYY-MM-DD)", s)
	}
	return r.Time, nil
}

// Resolve determines the reporting period for a run. explicit is the raw
// --date value ("" when absent); reportsDir is scanned for the prior
// report's embedded date when no explicit date is given.
func Resolve(explicit, reportsDir string, lookbackDays int, now time.Time) (Period, error) {
	if explicit != "" {
		start, err := ParseDate(explicit, now)
		if err != nil {
			return Period{}, fmt.Errorf("%w: %v", ErrUnresolvable, err)
		}
		return resolved(start, now)
	}

	if prior, ok := PriorReportDate(reportsDir); ok {
		return resolved(prior, now)
	}

	return New(now.AddDate(0, 0, -lookbackDays), now)
}

// resolved builds the period from a resolved start date. An invalid range
// (a start at or past the run time) is still a resolution failure, so
// callers get the same configuration-level error either way.
func resolved(start, now time.Time) (Period, error) {
	p, err := New(start, now)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %v", ErrUnresolvable, err)
	}
	return p, nil
}

var filenameDateRe = regexp.MustCompile(`(\d{8})`)

// PriorReportDate finds the most recent prior report in reportsDir and
// extracts its embedded YYYYMMDD date. Reports are matched on
// *monthly*.md; the newest by modification time wins, and its filename
// date is preferred over its mtime.
func PriorReportDate(reportsDir string) (time.Time, bool) {
	if reportsDir == "" {
		return time.Time{}, false
	}
	matches, err := filepath.Glob(filepath.Join(reportsDir, "*monthly*.md"))
	if err != nil || len(matches) == 0 {
		return time.Time{}, false
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var cands []candidate
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		cands = append(cands, candidate{path: m, mod: info.ModTime()})
	}
	if len(cands) == 0 {
		return time.Time{}, false
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].mod.After(cands[j].mod) })

	latest := cands[0]
	if m := filenameDateRe.FindString(filepath.Base(latest.path)); m != "" {
		if t, err := time.Parse("20060102", m); err == nil {
			return t, true
		}
	}
	return latest.mod, true
}

// datestampRes match dated filenames like 20250703-BoD1.rtf and 250703-standup.md.
var (
	longDatestampRe  = regexp.MustCompile(`^(\d{8})`)
	shortDatestampRe = regexp.MustCompile(`^(\d{6})`)
)

// DatestampFromFilename extracts a leading YYYYMMDD or YYMMDD datestamp.
// Two-digit years are assumed to be 20XX.
func DatestampFromFilename(name string) (time.Time, bool) {
	if m := longDatestampRe.FindStringSubmatch(name); m != nil {
		if t, err := time.Parse("20060102", m[1]); err == nil {
			return t, true
		}
	}
	if m := shortDatestampRe.FindStringSubmatch(name); m != nil {
		if t, err := time.Parse("20060102", "20"+m[1]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
