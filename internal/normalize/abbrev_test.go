package normalize

import "testing"

func TestExpanderExpand(t *testing.T) {
	t.Parallel()

	e := NewExpander(DefaultTables().Abbreviations)
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "no abbreviations", input: "Will it rain", want: "Will it rain"},
		{name: "single", input: "POTUS visits", want: "POTUS (President of the United States) visits"},
		{name: "case insensitive keeps surface", input: "the fed meets", want: "the fed (Federal Reserve) meets"},
		{name: "several", input: "BTC and ETH", want: "BTC (Bitcoin) and ETH (Ethereum)"},
		{name: "dollar prefix", input: "$BTC up", want: "$BTC (Bitcoin) up"},
		{name: "quarter", input: "by Q4 2025", want: "by Q4 (Fourth Quarter) 2025"},
		{name: "hyphen is a boundary", input: "AI-powered", want: "AI (Artificial Intelligence)-powered"},
		{name: "not inside words", input: "NBAX SOLANA ceos", want: "NBAX SOLANA ceos"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := e.Expand(tt.input); got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpanderDoesNotCascade(t *testing.T) {
	t.Parallel()

	e := NewExpander([]Abbreviation{
		{Short: "AA", Expansion: "BB thing"},
		{Short: "BB", Expansion: "nested"},
	})
	if got, want := e.Expand("AA"), "AA (BB thing)"; got != want {
		t.Errorf("Expand = %q, want %q", got, want)
	}
}

func TestExpanderDuplicateKeepsFirst(t *testing.T) {
	t.Parallel()

	e := NewExpander([]Abbreviation{
		{Short: "GDP", Expansion: "Gross Domestic Product"},
		{Short: "gdp", Expansion: "other"},
	})
	if got, want := e.Expand("gdp"), "gdp (Gross Domestic Product)"; got != want {
		t.Errorf("Expand = %q, want %q", got, want)
	}
}
