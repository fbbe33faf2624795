// Package summarize turns a consolidated source bundle into a short
// markdown summary, either through the Anthropic API or a deterministic
// extractive fallback when no API key is available.
package summarize

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/hmalloy/mrc/internal/source"
)

// Request carries one source bundle to summarize.
type Request struct {
	Kind        source.Kind
	PeriodLabel string // e.g. "2025-11-01 to 2025-11-30"
	Content     string // the consolidated bundle text
}

// Summarizer produces a markdown summary for one consolidated bundle.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
	// Name identifies the backend for run manifests ("anthropic" or
	// "extractive").
	Name() string
}

type promptData struct {
	KindLabel   string
	PeriodLabel string
	Focus       string
	Content     string
}

// kindFocus tailors the prompt per source kind so that, e.g., email
// summaries surface commitments while transcript summaries surface
// decisions made in the meeting.
var kindFocus = map[source.Kind]string{
	source.KindNotes:      "themes, decisions, and open questions recorded in working notes",
	source.KindTranscript: "decisions reached, action items assigned, and unresolved discussion points",
	source.KindMinutes:    "formal decisions, attendees' commitments, and follow-up items",
	source.KindEmail:      "commitments made, requests received, and threads still awaiting a reply",
}

func kindLabel(k source.Kind) string {
	switch k {
	case source.KindNotes:
		return "working notes"
	case source.KindTranscript:
		return "meeting transcripts"
	case source.KindMinutes:
		return "meeting minutes"
	case source.KindEmail:
		return "email threads"
	default:
		return string(k)
	}
}

var sourcePromptTmpl = template.Must(template.New("source").Parse(sourcePromptTemplate))

func renderSourcePrompt(req Request) (string, error) {
	data := promptData{
		KindLabel:   kindLabel(req.Kind),
		PeriodLabel: req.PeriodLabel,
		Focus:       kindFocus[req.Kind],
		Content:     req.Content,
	}
	var buf bytes.Buffer
	if err := sourcePromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

const sourcePromptTemplate = `You are preparing input for a monthly status report. Summarize the {{.KindLabel}} below, covering {{.PeriodLabel}}. Your output MUST be significantly shorter than the input.

Focus on {{.Focus}}. Group related items under short markdown headings. Omit pleasantries, scheduling chatter, and anything that would not matter a month from now.

Content:
{{.Content}}

Provide the summary as markdown bullet points under headings. Do not add a preamble or closing remarks.`
