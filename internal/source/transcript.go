package source

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hmalloy/mrc/internal/period"
)

// TranscriptSource reads a call-transcript archive: one directory per
// meeting containing a transcript.md with a metadata header, summary
// sections and `**Speaker** [MM:SS]` turns.
type TranscriptSource struct {
	Root string
}

func NewTranscriptSource(root string) *TranscriptSource {
	return &TranscriptSource{Root: root}
}

func (s *TranscriptSource) Kind() Kind { return KindTranscript }

func (s *TranscriptSource) Documents() ([]Document, error) {
	if s.Root == "" {
		return nil, nil
	}
	if _, err := os.Stat(s.Root); os.IsNotExist(err) {
		return nil, nil
	}

	var docs []Document
	_ = filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != s.Root {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext != ".md" && ext != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		data, err := os.ReadFile(path) // #nosec G304 - path from configured transcript dir
		if err != nil {
			return nil
		}
		docs = append(docs, Document{
			Kind:    KindTranscript,
			Path:    path,
			Content: string(data),
			ModTime: info.ModTime(),
		})
		return nil
	})
	return docs, nil
}

var (
	transcriptTitleRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	transcriptDateRe  = regexp.MustCompile(`(?m)^Date:\s*(.+)$`)
	speakerTurnRe     = regexp.MustCompile(`^\*\*(.+?)\*\*\s*\[(\d{1,3}):(\d{2})\]\s*$`)
)

// transcriptDateLayouts cover the dateString formats the downloader emits.
var transcriptDateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	time.RFC3339,
}

// Normalize emits one record per transcript document. Speaker turns are
// flattened to `Speaker: text` lines so the bundle stays readable without
// markdown rendering.
func (s *TranscriptSource) Normalize(doc Document) ([]Record, error) {
	title := ""
	if m := transcriptTitleRe.FindStringSubmatch(doc.Content); m != nil {
		title = strings.TrimSpace(m[1])
	}

	ts := s.meetingDate(doc)

	var out []string
	speaker := ""
	for _, line := range strings.Split(doc.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if m := speakerTurnRe.FindStringSubmatch(trimmed); m != nil {
			speaker = m[1]
			continue
		}
		if trimmed == "" {
			if len(out) > 0 && out[len(out)-1] != "" {
				out = append(out, "")
			}
			continue
		}
		if speaker != "" && !strings.HasPrefix(trimmed, "#") {
			out = append(out, speaker+": "+trimmed)
			speaker = ""
			continue
		}
		out = append(out, trimmed)
	}

	text := cleanText(strings.Join(out, "\n"))
	if text == "" {
		return nil, &SourceError{Kind: KindTranscript, Path: doc.Path,
			Err: errEmptyAfterCleaning}
	}

	return []Record{{Timestamp: ts, TopicHint: title, Text: text,
		Origin: filepath.Base(filepath.Dir(doc.Path)) + "/" + filepath.Base(doc.Path)}}, nil
}

// meetingDate resolves the transcript date: header Date line, then the
// datestamp in the meeting directory name, then file mtime.
func (s *TranscriptSource) meetingDate(doc Document) time.Time {
	if m := transcriptDateRe.FindStringSubmatch(doc.Content); m != nil {
		raw := strings.TrimSpace(m[1])
		for _, layout := range transcriptDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	dirName := filepath.Base(filepath.Dir(doc.Path))
	if t, ok := period.DatestampFromFilename(strings.ReplaceAll(dirName, "-", "")); ok {
		return t
	}
	return doc.ModTime
}
