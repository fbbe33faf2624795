package report

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hmalloy/mrc/internal/source"
)

var headingRe = regexp.MustCompile(`(?m)^##\s+(.+?)\s*$`)

// Headings extracts the level-2 section headings of a markdown report,
// in document order.
func Headings(markdown string) []string {
	var out []string
	for _, m := range headingRe.FindAllStringSubmatch(markdown, -1) {
		out = append(out, m[1])
	}
	return out
}

// FindPriorReport locates the newest *monthly*.md in reportsDir and
// returns its path and content. ok is false when no prior report exists;
// the first report of a project has nothing to inherit structure from.
func FindPriorReport(reportsDir string) (path, content string, ok bool) {
	matches, err := filepath.Glob(filepath.Join(reportsDir, "*monthly*.md"))
	if err != nil || len(matches) == 0 {
		return "", "", false
	}

	sort.Slice(matches, func(i, j int) bool {
		ii, erri := os.Stat(matches[i])
		ji, errj := os.Stat(matches[j])
		if erri != nil || errj != nil {
			return matches[i] > matches[j]
		}
		return ii.ModTime().After(ji.ModTime())
	})

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return "", "", false
	}
	return matches[0], string(data), true
}

// headingKinds maps keywords in a prior report's headings to source
// kinds, so that the new draft keeps the reader's accustomed section
// order.
var headingKinds = []struct {
	keywords []string
	kind     source.Kind
}{
	{[]string{"note", "highlight", "activit"}, source.KindNotes},
	{[]string{"transcript", "call", "discussion"}, source.KindTranscript},
	{[]string{"minute", "board", "meeting"}, source.KindMinutes},
	{[]string{"email", "correspondence", "thread"}, source.KindEmail},
}

// KindOrder derives the order to present source summaries in, from the
// prior report's headings. Kinds not recognizable in any heading are
// appended in canonical order, so every summary always has a slot.
func KindOrder(priorHeadings []string) []source.Kind {
	var order []source.Kind
	seen := map[source.Kind]bool{}

	for _, h := range priorHeadings {
		lower := strings.ToLower(h)
		for _, hk := range headingKinds {
			if seen[hk.kind] {
				continue
			}
			for _, kw := range hk.keywords {
				if strings.Contains(lower, kw) {
					order = append(order, hk.kind)
					seen[hk.kind] = true
					break
				}
			}
		}
	}

	for _, k := range source.Kinds() {
		if !seen[k] {
			order = append(order, k)
		}
	}
	return order
}
