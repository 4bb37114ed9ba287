package normalize

import (
	"regexp"
	"strings"
)

// Expander rewrites known abbreviations as "ABBR (Expansion)". Matching is
// case-insensitive on whole words and the matched surface form is kept.
type Expander struct {
	re        *regexp.Regexp
	expansion map[string]string
}

// NewExpander compiles the abbreviation table into a single alternation so
// every occurrence is rewritten in one left-to-right pass. Earlier entries win
// when two could match at the same position; a repeated short form keeps its
// first expansion.
func NewExpander(table []Abbreviation) *Expander {
	e := &Expander{expansion: make(map[string]string, len(table))}
	alts := make([]string, 0, len(table))
	for _, a := range table {
		key := strings.ToLower(a.Short)
		if _, dup := e.expansion[key]; dup || a.Short == "" {
			continue
		}
		e.expansion[key] = a.Expansion
		alts = append(alts, regexp.QuoteMeta(a.Short))
	}
	if len(alts) > 0 {
		e.re = regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
	}
	return e
}

// Expand returns text with every whole-word abbreviation expanded. Inserted
// expansions are never rescanned.
func (e *Expander) Expand(text string) string {
	if e.re == nil || text == "" {
		return text
	}
	var b strings.Builder
	last := 0
	for _, loc := range e.re.FindAllStringIndex(text, -1) {
		if !atWordBoundary(text, loc[0], loc[1]) {
			continue
		}
		surface := text[loc[0]:loc[1]]
		b.WriteString(text[last:loc[1]])
		b.WriteString(" (")
		b.WriteString(e.expansion[strings.ToLower(surface)])
		b.WriteString(")")
		last = loc[1]
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}
