package source

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// EmailSource reads downloaded email batches: markdown exports
// (gmail_export*.md) and plain batches (emails_*.txt). One batch file
// holds many emails; each email becomes one record.
//
// Threads are deduplicated by normalized subject, keeping only the most
// recent email per thread, and quoted reply history is stripped so a long
// thread does not repeat itself through the bundle.
type EmailSource struct {
	Dir string

	// readFile is replaceable so tests can exercise read failures.
	readFile func(string) ([]byte, error)
}

func NewEmailSource(dir string) *EmailSource {
	return &EmailSource{Dir: dir, readFile: os.ReadFile}
}

func (s *EmailSource) Kind() Kind { return KindEmail }

func (s *EmailSource) Documents() ([]Document, error) {
	if s.Dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(s.Dir); os.IsNotExist(err) {
		return nil, nil
	}

	var paths []string
	for _, pattern := range []string{"gmail_export*.md", "emails_*.txt"} {
		matches, err := filepath.Glob(filepath.Join(s.Dir, pattern))
		if err != nil {
			continue
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	read := s.readFile
	if read == nil {
		read = os.ReadFile
	}

	var docs []Document
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		data, err := read(p) // #nosec G304 - path from configured email dir
		if err != nil {
			// One unreadable batch must not take the other batches with it.
			docs = append(docs, Document{
				Kind: KindEmail, Path: p, ModTime: info.ModTime(),
				Err: &SourceError{Kind: KindEmail, Path: p, Err: err},
			})
			continue
		}
		docs = append(docs, Document{
			Kind:    KindEmail,
			Path:    p,
			Content: string(data),
			ModTime: info.ModTime(),
		})
	}
	return docs, nil
}

var (
	emailHeaderRe   = regexp.MustCompile(`(?m)^#\s*Email:\s*(.+)$`)
	emailDateRe     = regexp.MustCompile(`(?m)^-\s*\*\*Date:\*\*\s*(.+)$`)
	subjectPrefixRe = regexp.MustCompile(`(?i)^(re|fw|fwd|forward):\s*`)
	urlRe           = regexp.MustCompile(`https?://[^\s)]+`)
	quotedIntroRe   = regexp.MustCompile(`(?i)^On .{0,120} wrote:\s*$`)
)

// emailDateLayouts cover the Date header formats seen in exports.
var emailDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type email struct {
	subject string
	date    time.Time
	body    string
}

// Normalize splits a batch file into individual emails, strips quoted
// history and URLs, and keeps the most recent email per normalized
// subject.
func (s *EmailSource) Normalize(doc Document) ([]Record, error) {
	emails := splitEmails(doc.Content)
	if len(emails) == 0 {
		return nil, &SourceError{Kind: KindEmail, Path: doc.Path,
			Err: errEmptyAfterCleaning}
	}

	// Keep the newest email per thread.
	newest := make(map[string]email)
	var order []string
	for _, e := range emails {
		key := normalizeSubject(e.subject)
		cur, seen := newest[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || e.date.After(cur.date) {
			newest[key] = e
		}
	}

	var records []Record
	for _, key := range order {
		e := newest[key]
		body := stripQuotedThread(e.body)
		body = urlRe.ReplaceAllString(body, "[URL]")
		body = cleanText(body)
		if body == "" {
			continue
		}
		records = append(records, Record{
			Timestamp: e.date,
			TopicHint: e.subject,
			Text:      "Email: " + e.subject + "\n" + body,
			Origin:    filepath.Base(doc.Path),
		})
	}
	return records, nil
}

// splitEmails cuts a markdown export at each `# Email:` header.
func splitEmails(content string) []email {
	headers := emailHeaderRe.FindAllStringSubmatchIndex(content, -1)
	var out []email
	for i, h := range headers {
		end := len(content)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		section := content[h[0]:end]
		subject := strings.TrimSpace(content[h[2]:h[3]])

		var date time.Time
		if m := emailDateRe.FindStringSubmatch(section); m != nil {
			date = parseEmailDate(strings.TrimSpace(m[1]))
		}

		body := section
		if idx := strings.Index(section, "## Content"); idx >= 0 {
			body = section[idx+len("## Content"):]
		}
		if idx := strings.LastIndex(body, "\n---"); idx >= 0 {
			body = body[:idx]
		}

		out = append(out, email{subject: subject, date: date, body: body})
	}
	return out
}

// parseEmailDate returns the zero time when no layout matches; the period
// filter counts such records instead of guessing.
func parseEmailDate(raw string) time.Time {
	for _, layout := range emailDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func normalizeSubject(subject string) string {
	s := subject
	for {
		stripped := subjectPrefixRe.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}

// stripQuotedThread removes quoted reply history: `>` prefixed lines and
// everything from an "On ... wrote:" introduction onward.
func stripQuotedThread(body string) string {
	var kept []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if quotedIntroRe.MatchString(trimmed) {
			break
		}
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
