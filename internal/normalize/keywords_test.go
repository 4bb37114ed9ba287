package normalize

import (
	"fmt"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestKeywordExtractor(t *testing.T) {
	t.Parallel()

	k := NewKeywordExtractor(DefaultTables().StopWords, DefaultKeywordCap)
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "filters and dedupes",
			input: "Will Bitcoin reach 100000 by the end of 2025? Bitcoin!",
			want:  []string{"bitcoin", "reach", "end"},
		},
		{name: "unicode words", input: "Café résumé", want: []string{"café", "résumé"}},
		{name: "underscore kept", input: "foo_bar baz", want: []string{"foo_bar", "baz"}},
		{name: "empty", input: "", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := k.Extract(tt.input); !slices.Equal(got, tt.want) {
				t.Errorf("Extract(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeywordExtractorCap(t *testing.T) {
	t.Parallel()

	words := make([]string, 0, 30)
	for i := range 30 {
		words = append(words, fmt.Sprintf("term%02d", i))
	}
	text := strings.Join(words, " ")

	got := NewKeywordExtractor(DefaultTables().StopWords, DefaultKeywordCap).Extract(text)
	if !slices.Equal(got, words[:DefaultKeywordCap]) {
		t.Errorf("Extract = %v, want first %d terms", got, DefaultKeywordCap)
	}

	if got := NewKeywordExtractor(nil, 3).Extract(text); len(got) != 3 {
		t.Errorf("custom cap: len = %d, want 3", len(got))
	}
}

func TestKeywordExtractorInvariants(t *testing.T) {
	t.Parallel()

	tables := DefaultTables()
	k := NewKeywordExtractor(tables.StopWords, DefaultKeywordCap)
	inputs := []string{
		"The quick brown fox jumps over the lazy dog and then some more words follow here to pad it out well beyond twenty tokens total",
		"a an the of is are was 12 345 6789 ok go",
		"Will the Fed cut rates in 2025? It is what it is.",
	}
	for _, in := range inputs {
		got := k.Extract(in)
		if len(got) > DefaultKeywordCap {
			t.Errorf("Extract(%q) returned %d keywords", in, len(got))
		}
		for _, w := range got {
			if utf8.RuneCountInString(w) < MinKeywordLen {
				t.Errorf("keyword %q shorter than %d", w, MinKeywordLen)
			}
			if _, stop := tables.StopWords[w]; stop {
				t.Errorf("stop word %q kept", w)
			}
		}
	}
}
