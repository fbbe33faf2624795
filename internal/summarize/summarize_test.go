package summarize

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmalloy/mrc/internal/source"
)

func TestRenderSourcePrompt(t *testing.T) {
	prompt, err := renderSourcePrompt(Request{
		Kind:        source.KindEmail,
		PeriodLabel: "2025-11-01 to 2025-11-30",
		Content:     "Email: Budget approval\nPlease confirm the Q4 numbers.",
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "email threads")
	assert.Contains(t, prompt, "2025-11-01 to 2025-11-30")
	assert.Contains(t, prompt, "commitments made")
	assert.Contains(t, prompt, "Budget approval")
}

func TestNewAnthropicClientRequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewAnthropicClient("", "claude-3-5-haiku-latest")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAPIKeyRequired))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"rate limited", &anthropic.Error{StatusCode: 429}, true},
		{"server error", &anthropic.Error{StatusCode: 503}, true},
		{"bad request", &anthropic.Error{StatusCode: 400}, false},
		{"auth failure", &anthropic.Error{StatusCode: 401}, false},
		{"net timeout", &net.DNSError{IsTimeout: true}, true},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

const sampleBundle = `Date: 2025-11-03
Topic: Planning sync

We agreed to move the launch to December.

--------------------------------------------------------------------------------

Date: 2025-11-10
Source: team/standup.md

Shipped the ingestion fix.

--------------------------------------------------------------------------------

Date: 2025-11-12
Topic: Budget
Source: finance/notes.md

Q4 budget still pending approval.`

func TestExtractiveSummarize(t *testing.T) {
	out, err := Extractive{}.Summarize(context.Background(), Request{
		Kind:        source.KindNotes,
		PeriodLabel: "2025-11-01 to 2025-11-30",
		Content:     sampleBundle,
	})
	require.NoError(t, err)

	assert.Contains(t, out, "## Working notes (2025-11-01 to 2025-11-30)")
	assert.Contains(t, out, "- 2025-11-03: Planning sync")
	assert.Contains(t, out, "- 2025-11-10: Shipped the ingestion fix.")
	assert.Contains(t, out, "- 2025-11-12: Budget")
}

func TestExtractiveDeterministic(t *testing.T) {
	req := Request{Kind: source.KindMinutes, PeriodLabel: "Nov 2025", Content: sampleBundle}
	a, err := Extractive{}.Summarize(context.Background(), req)
	require.NoError(t, err)
	b, err := Extractive{}.Summarize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBlockHeadlineTruncatesOnRuneBoundary(t *testing.T) {
	_, _, first := blockHeadline(strings.Repeat("é", 130))
	assert.True(t, utf8.ValidString(first))
	assert.Equal(t, 120, utf8.RuneCountInString(first))
	assert.True(t, strings.HasSuffix(first, "..."))
}

func TestExtractiveEmptyBundle(t *testing.T) {
	out, err := Extractive{}.Summarize(context.Background(), Request{
		Kind: source.KindEmail, PeriodLabel: "Nov 2025", Content: "",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "no items recorded this period")
	assert.Equal(t, 1, strings.Count(out, "\n- "))
}
