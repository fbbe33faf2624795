// Package source turns heterogeneous raw material (notes exports, meeting
// minutes, call transcripts, downloaded email batches) into a uniform
// stream of dated fact records.
//
// Each source kind owns its encoding quirks but converges on the same
// Record shape. A failure normalizing one document never aborts the batch:
// callers accumulate per-document errors and keep going.
package source

import (
	"errors"
	"fmt"
	"time"
)

// errEmptyAfterCleaning means markup stripping left no readable text.
var errEmptyAfterCleaning = errors.New("no readable content after cleaning")

// Kind enumerates the supported source kinds. The kind keys the
// consolidated bundle filename, so values are stable.
type Kind string

const (
	KindNotes      Kind = "notes"
	KindTranscript Kind = "transcript"
	KindMinutes    Kind = "minutes"
	KindEmail      Kind = "email"
)

// Kinds lists all source kinds in pipeline order.
func Kinds() []Kind {
	return []Kind{KindNotes, KindTranscript, KindMinutes, KindEmail}
}

// Valid reports whether k is a known source kind.
func (k Kind) Valid() bool {
	switch k {
	case KindNotes, KindTranscript, KindMinutes, KindEmail:
		return true
	}
	return false
}

// Document is one raw input unit: a note file, a transcript, a minutes
// document, or an email export batch.
type Document struct {
	Kind    Kind
	Path    string
	Content string
	ModTime time.Time

	// Err records a read failure for a document that was listed but could
	// not be loaded. The consolidator reports it per-document and keeps
	// going with the rest of the batch.
	Err error
}

// Record is the normalized unit every source kind converges on.
// TopicHint is a best-effort heading derived from formatting cues, not a
// parsing guarantee. A zero Timestamp means no timestamp could be
// extracted; the period filter excludes and counts such records.
// Origin names the document the record came from, for bundle headers and
// error attribution.
type Record struct {
	Timestamp time.Time
	TopicHint string
	Text      string
	Origin    string
}

// SourceError names the source kind and path that failed to normalize, so
// the run manifest can attribute gaps to a specific document.
type SourceError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s source %s: %v", e.Kind, e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Source enumerates the documents of one source kind and normalizes them.
// Documents reads disk; Normalize is pure given a Document.
type Source interface {
	Kind() Kind
	// Documents scans the configured location(s) and returns raw documents.
	// A missing root is not an error: it returns an empty slice so the
	// pipeline records the source as skipped.
	Documents() ([]Document, error)
	// Normalize converts one document into dated fact records.
	Normalize(doc Document) ([]Record, error)
}
