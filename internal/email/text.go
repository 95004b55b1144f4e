package email

import (
	"regexp"
	"strings"
)

var (
	brPattern      = regexp.MustCompile(`(?i)<br[^>]*>`)
	pOpenPattern   = regexp.MustCompile(`(?i)<p[^>]*>`)
	headingPattern = regexp.MustCompile(`(?i)</?h[1-6][^>]*>`)
	liPattern      = regexp.MustCompile(`(?i)<li[^>]*>`)
	linkPattern    = regexp.MustCompile(`(?is)<a\s+[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)
	tagPattern     = regexp.MustCompile(`<[^>]+>`)
	blankPattern   = regexp.MustCompile(`\n\s*\n`)
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

// HTMLToText derives a plain-text alternative from HTML by mapping
// structural elements to their plain equivalents and stripping the
// rest. This is a best-effort text projection, not a faithful visual
// reproduction.
func HTMLToText(html string) string {
	text := brPattern.ReplaceAllString(html, "\n")
	text = pOpenPattern.ReplaceAllString(text, "\n")
	text = strings.ReplaceAll(text, "</p>", "\n")
	text = headingPattern.ReplaceAllString(text, "\n")
	text = liPattern.ReplaceAllString(text, "\n• ")
	text = linkPattern.ReplaceAllString(text, "$2 ($1)")
	text = tagPattern.ReplaceAllString(text, "")
	text = entityReplacer.Replace(text)
	text = blankPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
