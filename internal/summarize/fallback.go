package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/hmalloy/mrc/internal/ui"
)

const maxExtractiveItems = 40

// Extractive is the offline fallback summarizer. It never calls the
// network: it lifts the date and topic headers out of each bundle block
// and emits them as a bullet list, so a run without an API key still
// produces a usable (if mechanical) summary. Output is deterministic
// for a given bundle.
type Extractive struct{}

func (Extractive) Name() string { return "extractive" }

func (Extractive) Summarize(_ context.Context, req Request) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s (%s)\n\n", capitalize(kindLabel(req.Kind)), req.PeriodLabel)

	items := 0
	for _, block := range splitBlocks(req.Content) {
		date, topic, first := blockHeadline(block)
		if date == "" && topic == "" && first == "" {
			continue
		}
		if items >= maxExtractiveItems {
			fmt.Fprintf(&b, "- (further items omitted)\n")
			break
		}
		line := "- "
		if date != "" {
			line += date + ": "
		}
		switch {
		case topic != "":
			line += topic
		case first != "":
			line += first
		}
		b.WriteString(line + "\n")
		items++
	}

	if items == 0 {
		b.WriteString("- no items recorded this period\n")
	}
	return b.String(), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// splitBlocks separates a bundle on its dashed separator lines.
func splitBlocks(content string) []string {
	var blocks []string
	var cur []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) >= 10 && strings.Count(trimmed, "-") == len(trimmed) {
			if len(cur) > 0 {
				blocks = append(blocks, strings.Join(cur, "\n"))
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, strings.Join(cur, "\n"))
	}
	return blocks
}

func blockHeadline(block string) (date, topic, first string) {
	for _, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "Date:"):
			date = strings.TrimSpace(strings.TrimPrefix(trimmed, "Date:"))
		case strings.HasPrefix(trimmed, "Topic:"):
			topic = strings.TrimSpace(strings.TrimPrefix(trimmed, "Topic:"))
		case strings.HasPrefix(trimmed, "Source:"):
			continue
		default:
			if first == "" {
				first = ui.TruncateSimple(trimmed, 120)
			}
		}
		if date != "" && topic != "" && first != "" {
			break
		}
	}
	return date, topic, first
}
