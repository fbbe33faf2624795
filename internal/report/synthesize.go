package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/hmalloy/mrc/internal/period"
	"github.com/hmalloy/mrc/internal/source"
	"github.com/hmalloy/mrc/internal/workdir"
)

// Completer is the LLM surface synthesis needs: one prompt in, one text
// response out. *summarize.AnthropicClient satisfies it; a nil Completer
// selects the deterministic offline assembly.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Synthesizer merges intermediate summaries into the draft report.
type Synthesizer struct {
	Completer Completer
}

// SynthesisInput is everything the draft is built from. Results must be
// the complete dispatch output: synthesis runs only after the dispatch
// barrier, and failed sources are flagged in the draft rather than
// silently dropped.
type SynthesisInput struct {
	Period          period.Period
	Results         []SummaryResult
	PriorHeadings   []string
	AdditionalNotes string
}

type section struct {
	Kind    source.Kind
	Title   string
	Content string
	Err     error
}

// Synthesize produces the draft markdown. With a Completer it asks the
// model to merge the sections following the prior report's structure;
// without one it assembles the sections mechanically. Either way the
// draft names every failed source.
func (s *Synthesizer) Synthesize(ctx context.Context, in SynthesisInput) (string, error) {
	sections := s.collect(in)
	if len(sections) == 0 && in.AdditionalNotes == "" {
		return "", fmt.Errorf("nothing to synthesize: no summaries and no additional notes")
	}

	if s.Completer == nil {
		return assembleDraft(in, sections), nil
	}

	prompt, err := renderSynthesisPrompt(in, sections)
	if err != nil {
		return "", err
	}
	body, err := s.Completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("synthesis request: %w", err)
	}
	return draftHeader(in.Period) + body + failureFooter(sections), nil
}

// collect orders the dispatch results by the prior report's section
// order and loads each summary from disk.
func (s *Synthesizer) collect(in SynthesisInput) []section {
	byKind := map[source.Kind]SummaryResult{}
	for _, r := range in.Results {
		byKind[r.Kind] = r
	}

	var out []section
	for _, k := range KindOrder(in.PriorHeadings) {
		r, ok := byKind[k]
		if !ok {
			continue
		}
		sec := section{Kind: k, Title: sectionTitle(k)}
		switch {
		case r.Failed():
			sec.Err = r.Err
		case r.SummaryPath == "":
			continue // nothing in the period for this source
		default:
			data, err := os.ReadFile(r.SummaryPath)
			if err != nil {
				sec.Err = err
			} else {
				sec.Content = strings.TrimSpace(string(data))
			}
		}
		out = append(out, sec)
	}
	return out
}

func sectionTitle(k source.Kind) string {
	switch k {
	case source.KindNotes:
		return "Notes & Activity"
	case source.KindTranscript:
		return "Meetings & Calls"
	case source.KindMinutes:
		return "Formal Meetings"
	case source.KindEmail:
		return "Correspondence"
	default:
		return string(k)
	}
}

func draftHeader(p period.Period) string {
	return fmt.Sprintf("# Monthly Report DRAFT - %s\n\n", p.Label())
}

// assembleDraft is the offline path: sections in order, failures flagged
// inline, additional notes appended verbatim.
func assembleDraft(in SynthesisInput, sections []section) string {
	var b strings.Builder
	b.WriteString(draftHeader(in.Period))

	for _, sec := range sections {
		fmt.Fprintf(&b, "## %s\n\n", sec.Title)
		if sec.Err != nil {
			fmt.Fprintf(&b, "_Source unavailable this period: %v_\n\n", sec.Err)
			continue
		}
		b.WriteString(sec.Content)
		b.WriteString("\n\n")
	}

	if in.AdditionalNotes != "" {
		b.WriteString("## Additional Notes\n\n")
		b.WriteString(strings.TrimSpace(in.AdditionalNotes))
		b.WriteString("\n")
	}
	return b.String()
}

// failureFooter appends an explicit record of failed sources to a
// model-written draft, so a degraded run is always visible in the
// output itself.
func failureFooter(sections []section) string {
	var failed []string
	for _, sec := range sections {
		if sec.Err != nil {
			failed = append(failed, fmt.Sprintf("- %s: %v", sec.Kind, sec.Err))
		}
	}
	if len(failed) == 0 {
		return ""
	}
	return "\n\n## Sources Unavailable This Period\n\n" + strings.Join(failed, "\n") + "\n"
}

type synthesisData struct {
	PeriodLabel   string
	PriorHeadings []string
	Sections      []section
	Notes         string
}

var synthesisTmpl = template.Must(template.New("synthesis").Parse(synthesisPromptTemplate))

func renderSynthesisPrompt(in SynthesisInput, sections []section) (string, error) {
	var present []section
	for _, sec := range sections {
		if sec.Err == nil {
			present = append(present, sec)
		}
	}
	data := synthesisData{
		PeriodLabel:   in.Period.Label(),
		PriorHeadings: in.PriorHeadings,
		Sections:      present,
		Notes:         in.AdditionalNotes,
	}
	var buf bytes.Buffer
	if err := synthesisTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render synthesis prompt: %w", err)
	}
	return buf.String(), nil
}

const synthesisPromptTemplate = `You are drafting a monthly status report covering {{.PeriodLabel}}. Merge the per-source summaries below into a single coherent draft in markdown.
{{if .PriorHeadings}}
The previous report used these sections, in this order. Follow the same structure where the content allows:
{{range .PriorHeadings}}- {{.}}
{{end}}{{end}}
{{range .Sections}}### Input: {{.Title}}
{{.Content}}

{{end}}{{if .Notes}}### Input: additional notes from the author
{{.Notes}}

{{end}}Merge overlapping items that appear in more than one source. Keep concrete dates and names. Do not invent content that is not in the inputs. Output only the report body in markdown, starting with the first section heading.`

// ReadAdditionalNotes concatenates the free-form notes dropped into the
// context dir's additional_notes/ subdirectory, in filename order.
func ReadAdditionalNotes(dir workdir.Dir) string {
	entries, err := os.ReadDir(dir.AdditionalNotes())
	if err != nil {
		return ""
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || workdir.IsStash(e.Name()) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir.AdditionalNotes(), name))
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
