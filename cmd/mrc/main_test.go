package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hmalloy/mrc/internal/manifest"
	"github.com/hmalloy/mrc/internal/ui"
)

func TestWatchableFile(t *testing.T) {
	assert.True(t, watchableFile("/exports/notes/planning.md"))
	assert.True(t, watchableFile("/minutes/20251103-BoD.RTF"))
	assert.False(t, watchableFile("/exports/.DS_Store"))
	assert.False(t, watchableFile("/exports/archive.zip"))
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/pat")
	assert.Equal(t, "/home/pat/reports", expandHome("~/reports"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
}

func TestPrintManifest(t *testing.T) {
	m := &manifest.RunManifest{
		PeriodStart: "2025-11-01",
		PeriodEnd:   "2025-12-01",
		Sources: []manifest.SourceRecord{
			{Kind: "notes", Outcome: manifest.OutcomeSucceeded, Documents: 3, Records: 10},
			{Kind: "email", Outcome: manifest.OutcomeFailed, Error: "export unreadable"},
		},
		Warnings: []string{"no API key; using extractive summaries"},
	}

	var buf bytes.Buffer
	printManifest(&buf, m, "/tmp/draft.md")
	out := buf.String()

	assert.Contains(t, out, "notes")
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "10 records from 3 documents")
	assert.Contains(t, out, "export unreadable")
	assert.Contains(t, out, ui.SeparatorLight)
	assert.Contains(t, out, "no API key")
	assert.Contains(t, out, "/tmp/draft.md")
}
