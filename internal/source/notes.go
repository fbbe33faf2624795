package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hmalloy/mrc/internal/ui"
)

// skipExtensions are binary or rendered formats the notes walk ignores.
var skipExtensions = map[string]bool{
	".html": true, ".docx": true, ".pdf": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".mp4": true, ".mov": true, ".mp3": true, ".zip": true,
}

// NotesSource reads the markdown tree produced by the notes exporter.
// One note file becomes one record, dated by an embedded frontmatter date
// when present and by file mtime otherwise.
type NotesSource struct {
	Root string
}

func NewNotesSource(root string) *NotesSource {
	return &NotesSource{Root: root}
}

func (s *NotesSource) Kind() Kind { return KindNotes }

func (s *NotesSource) Documents() ([]Document, error) {
	if s.Root == "" {
		return nil, nil
	}
	if _, err := os.Stat(s.Root); os.IsNotExist(err) {
		return nil, nil
	}

	var docs []Document
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != s.Root {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || skipExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil // racing deletion, skip
		}
		data, err := os.ReadFile(path) // #nosec G304 - path from configured export root
		if err != nil {
			return nil
		}
		docs = append(docs, Document{
			Kind:    KindNotes,
			Path:    path,
			Content: string(data),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking notes export %s: %w", s.Root, err)
	}
	return docs, nil
}

// frontmatterDateRe matches `date: 2025-11-03` or `modified: 2025-11-03...`
// lines in exported note frontmatter.
var frontmatterDateRe = regexp.MustCompile(`(?mi)^(?:date|modified|updated):\s*(\d{4}-\d{2}-\d{2})`)

func (s *NotesSource) Normalize(doc Document) ([]Record, error) {
	cleaned := DetectAndClean(stripFrontmatter(doc.Content))
	if cleaned == "" {
		// Keep the note rather than dropping it: a truncated raw body still
		// carries signal for synthesis.
		cleaned = strings.TrimSpace(doc.Content)
		if cleaned == "" {
			return nil, nil
		}
		cleaned = ui.TruncateSimple(cleaned, 500)
	}

	ts := doc.ModTime
	if m := frontmatterDateRe.FindStringSubmatch(doc.Content); m != nil {
		if t, err := time.Parse("2006-01-02", m[1]); err == nil {
			ts = t
		}
	}

	hint := TopicHint(cleaned)
	if hint == "" {
		hint = noteTitle(doc.Path)
	}

	return []Record{{Timestamp: ts, TopicHint: hint, Text: cleaned, Origin: filepath.Base(doc.Path)}}, nil
}

// stripFrontmatter removes a leading YAML frontmatter block. The date
// inside it is read separately before stripping.
func stripFrontmatter(content string) string {
	if !strings.HasPrefix(content, "---\n") {
		return content
	}
	rest := content[4:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return content
	}
	after := rest[end+4:]
	if idx := strings.Index(after, "\n"); idx >= 0 {
		return after[idx+1:]
	}
	return ""
}

func noteTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
