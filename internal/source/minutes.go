package source

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hmalloy/mrc/internal/period"
)

// minutesExtensions are the document formats scanned in minutes directories.
var minutesExtensions = map[string]bool{
	".rtf": true, ".md": true, ".txt": true, ".text": true,
}

// MinutesSource scans one or more minutes/agendas directories for dated
// documents. The timestamp comes from a leading filename datestamp
// (20250703-BoD1.rtf, 250703-standup.md) with file mtime as the fallback,
// which also sweeps in undated documents edited during the period.
//
// Files over MaxFileKB are excluded and counted: bulky RTF documents with
// embedded graphics would swamp the bundle.
type MinutesSource struct {
	Dirs      []string
	MaxFileKB int

	// Oversized counts documents excluded by the size cap during the last
	// Documents call.
	Oversized int
}

func NewMinutesSource(dirs []string, maxFileKB int) *MinutesSource {
	return &MinutesSource{Dirs: dirs, MaxFileKB: maxFileKB}
}

func (s *MinutesSource) Kind() Kind { return KindMinutes }

func (s *MinutesSource) Documents() ([]Document, error) {
	s.Oversized = 0
	var docs []Document
	for _, dir := range s.Dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		// Walk errors inside one directory skip that directory only.
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != dir {
					return filepath.SkipDir
				}
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || !minutesExtensions[strings.ToLower(filepath.Ext(name))] {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if s.MaxFileKB > 0 && info.Size() > int64(s.MaxFileKB)*1024 {
				s.Oversized++
				return nil
			}
			data, err := os.ReadFile(path) // #nosec G304 - path from configured minutes dirs
			if err != nil {
				return nil
			}
			docs = append(docs, Document{
				Kind:    KindMinutes,
				Path:    path,
				Content: string(data),
				ModTime: info.ModTime(),
			})
			return nil
		})
	}
	return docs, nil
}

func (s *MinutesSource) Normalize(doc Document) ([]Record, error) {
	cleaned := DetectAndClean(doc.Content)
	if cleaned == "" {
		return nil, &SourceError{Kind: KindMinutes, Path: doc.Path,
			Err: errEmptyAfterCleaning}
	}

	ts := doc.ModTime
	if t, ok := period.DatestampFromFilename(filepath.Base(doc.Path)); ok {
		ts = t
	}

	hint := TopicHint(cleaned)
	if hint == "" {
		hint = minutesTitle(doc.Path)
	}

	return []Record{{Timestamp: ts, TopicHint: hint, Text: cleaned, Origin: filepath.Base(doc.Path)}}, nil
}

// minutesTitle strips the datestamp prefix and extension from a minutes
// filename: 20250703-BoD1-Phil.rtf -> BoD1-Phil.
func minutesTitle(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	for i, r := range base {
		if r < '0' || r > '9' {
			return strings.TrimLeft(base[i:], "-_ ")
		}
	}
	return base
}
