package normalize

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

// isWordRune reports whether r counts as a word character for whole-word
// matching. Letters and digits of any script qualify, as does '_'.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// atWordBoundary reports whether s[start:end] is delimited by non-word runes
// (or the ends of s) on both sides.
func atWordBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

// findWholeWords returns the matches of re in s that stand as whole words.
// Patterns passed here match word characters only and no alternative is a
// prefix of another, so a rejected candidate never hides an acceptable one.
func findWholeWords(re *regexp.Regexp, s string) []string {
	var out []string
	for _, loc := range re.FindAllStringIndex(s, -1) {
		if atWordBoundary(s, loc[0], loc[1]) {
			out = append(out, s[loc[0]:loc[1]])
		}
	}
	return out
}

// appendUnique appends v to list unless seen already holds it.
func appendUnique(list []string, seen map[string]struct{}, v string) []string {
	if _, ok := seen[v]; ok {
		return list
	}
	seen[v] = struct{}{}
	return append(list, v)
}

// distinct returns the first max distinct values of vs in first-seen order.
// A max of zero or less keeps every distinct value.
func distinct(vs []string, max int) []string {
	out := make([]string, 0, len(vs))
	seen := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		if max > 0 && len(out) == max {
			break
		}
		out = appendUnique(out, seen, v)
	}
	return out
}
