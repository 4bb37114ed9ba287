package normalize

import (
	"regexp"
	"strings"
)

var reResolutionSource = regexp.MustCompile(`(?i)the (?:primary )?resolution source`)

// Stripper removes templated resolution language from descriptions.
type Stripper struct {
	phrases []string
}

// NewStripper returns a Stripper removing the given literal phrases.
func NewStripper(phrases []string) *Stripper {
	return &Stripper{phrases: append([]string(nil), phrases...)}
}

// Strip drops everything from the first "The [primary ]resolution source"
// onwards, then removes each literal phrase (case-sensitive) and trims.
// Truncation happens before phrase removal.
func (s *Stripper) Strip(text string) string {
	if strings.Contains(strings.ToLower(text), "resolution source") {
		if loc := reResolutionSource.FindStringIndex(text); loc != nil {
			text = text[:loc[0]]
		}
	}
	for _, p := range s.phrases {
		text = strings.ReplaceAll(text, p, "")
	}
	return strings.TrimSpace(text)
}
