package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultKeywordCap bounds the keyword list of a compact record.
const DefaultKeywordCap = 20

// MinKeywordLen is the shortest keyword kept, in runes.
const MinKeywordLen = 3

var reNonWord = regexp.MustCompile(`[^\p{L}\p{N}_]`)

// KeywordExtractor picks distinct content words out of free text.
type KeywordExtractor struct {
	stop map[string]struct{}
	cap  int
}

// NewKeywordExtractor returns an extractor dropping stop words and keeping at
// most limit keywords. A non-positive limit uses DefaultKeywordCap.
func NewKeywordExtractor(stop map[string]struct{}, limit int) *KeywordExtractor {
	if limit <= 0 {
		limit = DefaultKeywordCap
	}
	return &KeywordExtractor{stop: stop, cap: limit}
}

// Extract lowercases text, splits it on whitespace and strips non-word runes
// from each token. Short, stop-listed and all-digit tokens are dropped; the
// rest are deduplicated in first-seen order.
func (k *KeywordExtractor) Extract(text string) []string {
	out := make([]string, 0, k.cap)
	seen := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		if len(out) == k.cap {
			break
		}
		word := reNonWord.ReplaceAllString(field, "")
		if utf8.RuneCountInString(word) < MinKeywordLen || allDigits(word) {
			continue
		}
		if _, ok := k.stop[word]; ok {
			continue
		}
		out = appendUnique(out, seen, word)
	}
	return out
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
