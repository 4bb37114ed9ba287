package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reSpaces     = regexp.MustCompile(`\s+`)
	reURLHost    = regexp.MustCompile(`https?://(?:www\.)?([^/\s]+)[^\s]*`)
	reURL        = regexp.MustCompile(`https?://\S+`)
	reRichStrip    = regexp.MustCompile(`[^\p{L}\p{N}_\s$%.,;:\-/()'"]+`)
	reCompactStrip = regexp.MustCompile(`[^\p{L}\p{N}_\s$%.,\-]`)

	quoteReplacer = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

// Cleaner normalizes free text. The zero value is ready to use.
type Cleaner struct{}

// Clean composes the text to NFC, collapses whitespace, reduces URLs to their
// host, maps typographic quotes to ASCII and replaces runs of characters
// outside the allow-list with a single space.
func (Cleaner) Clean(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFC.String(text)
	text = collapse(text)
	text = reURLHost.ReplaceAllString(text, "$1")
	text = quoteReplacer.Replace(text)
	text = reRichStrip.ReplaceAllString(text, " ")
	return collapse(text)
}

// CleanCompact is the lowercase variant: URLs are dropped entirely and the
// allow-list is narrower.
func (Cleaner) CleanCompact(text string) string {
	if text == "" {
		return ""
	}
	text = collapse(strings.ToLower(text))
	text = reURL.ReplaceAllString(text, "")
	text = reCompactStrip.ReplaceAllString(text, " ")
	return collapse(text)
}

func collapse(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}
