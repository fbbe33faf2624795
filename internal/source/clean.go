package source

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DetectAndClean sniffs the content format and strips formatting so the
// text is digestible downstream. RTF and markup documents degrade to their
// plain text; everything else just gets whitespace normalization.
func DetectAndClean(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	head := content
	if len(head) > 100 {
		head = head[:100]
	}

	switch {
	case strings.HasPrefix(content, `{\rtf`) || strings.Contains(head, `\rtf1`):
		return cleanRTF(content)
	case strings.HasPrefix(content, "<?xml") || strings.HasPrefix(content, "<") || tagRe.MatchString(content):
		return cleanMarkup(content)
	default:
		return cleanText(content)
	}
}

var (
	tagRe = regexp.MustCompile(`<[^>]+>`)

	rtfHeaderRe       = regexp.MustCompile(`(?s)\\rtf\d+.*?\\deftab\d+`)
	rtfParRe          = regexp.MustCompile(`\\par[d]?\b`)
	rtfDestGroupRe    = regexp.MustCompile(`\{\\(?:fonttbl|colortbl|stylesheet|info|\*)[^{}]*\}`)
	rtfControlWordRe  = regexp.MustCompile(`\\[a-zA-Z]+-?\d*\s?`)
	rtfControlSymRe   = regexp.MustCompile(`\\[^a-zA-Z]`)
	artifactLineRe    = regexp.MustCompile(`^[\s\\{}]+$`)
	excessBlankLineRe = regexp.MustCompile(`\n{3,}`)
	runSpaceRe        = regexp.MustCompile(`[ \t]+`)
)

// rtfEscapes maps the cp1252 hex escapes that show up in Apple RTF exports.
var rtfEscapes = strings.NewReplacer(
	`\'92`, "'",
	`\'93`, `"`,
	`\'94`, `"`,
	`\'96`, "-",
	`\'97`, "-",
	`\'85`, "...",
)

// cleanRTF strips RTF control words, destination groups and escapes down
// to the text. Group content is kept (only braces are dropped): whole
// documents are a single outer group and deleting groups wholesale would
// erase them. This is deliberately lossy: minutes go into an LLM prompt,
// not back into an editor.
func cleanRTF(content string) string {
	text := rtfEscapes.Replace(content)
	text = rtfHeaderRe.ReplaceAllString(text, "")
	// Destination groups (font tables, color tables, metadata) carry no
	// prose; strip inner-first so nested tables unwind.
	for {
		stripped := rtfDestGroupRe.ReplaceAllString(text, "")
		if stripped == text {
			break
		}
		text = stripped
	}
	text = rtfParRe.ReplaceAllString(text, "\n")
	text = rtfControlWordRe.ReplaceAllString(text, "")
	text = rtfControlSymRe.ReplaceAllString(text, "\n")
	text = strings.ReplaceAll(text, "{", "")
	text = strings.ReplaceAll(text, "}", "")
	return cleanText(text)
}

// cleanMarkup extracts the text content of an HTML/XML fragment. goquery
// handles real documents; the regex fallback covers fragments the parser
// rejects.
func cleanMarkup(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err == nil {
		if text := doc.Text(); strings.TrimSpace(text) != "" {
			return cleanText(text)
		}
	}
	text := tagRe.ReplaceAllString(content, "")
	text = decodeEntities(text)
	return cleanText(text)
}

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
	"&apos;", "'",
	"&#39;", "'",
	"&#x27;", "'",
	"&nbsp;", " ",
)

func decodeEntities(s string) string {
	return entityReplacer.Replace(s)
}

// cleanText normalizes whitespace and drops lines that are pure
// formatting residue. At most one blank line survives between blocks.
func cleanText(text string) string {
	if text == "" {
		return ""
	}

	text = runSpaceRe.ReplaceAllString(text, " ")

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			kept = append(kept, "")
			continue
		}
		if len(line) <= 2 || artifactLineRe.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}

	out := strings.Join(kept, "\n")
	out = excessBlankLineRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

const maxTopicHintLen = 60

// TopicHint derives a best-effort section heading from cleaned text: a
// markdown heading wins, otherwise a short standalone first line followed
// by more content. Ambiguity is inherent here (blank-line context, length
// threshold); consumers treat the hint as advisory.
func TopicHint(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# "))
		}
		// Short standalone line with content following it.
		if len(line) <= maxTopicHintLen && !strings.HasSuffix(line, ".") && i < len(lines)-1 {
			return line
		}
		return ""
	}
	return ""
}
