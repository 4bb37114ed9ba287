package normalize

import (
	"regexp"
	"strings"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

var (
	// Group 1 is set only for a symbol quoted against USD; the "/USD" suffix
	// is not part of the ticker and may start the next match.
	reTicker     = regexp.MustCompile(`\$[A-Z]{2,5}|([A-Z]{2,5})/USD|BTC|ETH|SOL|DOGE|USDT|USDC|ADA|DOT|MATIC`)
	rePrice      = regexp.MustCompile(`\$[\d,]+(?:\.\d{1,2})?|\d+(?:,\d{3})*(?:\.\d+)?%?`)
	reDate       = regexp.MustCompile(`(?i)(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}|\d{1,2}/\d{1,2}/\d{2,4}|Q[1-4]\s+\d{4}|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\.?\s+\d{1,2},?\s+\d{4}`)
	reComparator = regexp.MustCompile(`(?i)(?:above|below|over|under|more than|less than|at least|no more than|exceed|surpass|reach)\s+(?:\$?[\d,]+(?:\.\d+)?|[\d.]+%)`)

	reCompactTicker = regexp.MustCompile(`BTC|ETH|SOL|USDT|USDC|DOGE|ADA|DOT|MATIC|AVAX|LINK|UNI`)
	reCompactNumber = regexp.MustCompile(`\$\d+[,\d]*(?:\.\d+)?[kKmMbB]?|\d+(?:\.\d+)?%`)
	reYear          = regexp.MustCompile(`20\d{2}`)
)

// Caps for the compact entity lists.
const (
	MaxCompactNumbers = 5
	MaxCompactYears   = 3
)

// CompactEntities is the reduced entity set of the compact variant.
type CompactEntities struct {
	Tickers []string
	Numbers []string
	Years   []string
}

// Extract pulls tickers, price figures, dates and comparator phrases out of
// text. Every list is deduplicated and kept in first-seen order.
func Extract(text string) domain.EntitySet {
	tickers := make([]string, 0)
	seen := make(map[string]struct{})
	for _, t := range findTickers(text) {
		tickers = appendUnique(tickers, seen, strings.ToUpper(strings.TrimPrefix(t, "$")))
	}
	return domain.EntitySet{
		Tickers:     tickers,
		Prices:      distinct(rePrice.FindAllString(text, -1), 0),
		Dates:       distinct(reDate.FindAllString(text, -1), 0),
		Comparators: distinct(reComparator.FindAllString(text, -1), 0),
	}
}

// findTickers scans text left to right. A "SYM/USD" match yields SYM and the
// scan resumes at the slash.
func findTickers(text string) []string {
	var out []string
	for pos := 0; pos < len(text); {
		loc := reTicker.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		if loc[2] >= 0 {
			out = append(out, text[pos+loc[2]:pos+loc[3]])
			pos += loc[3]
			continue
		}
		out = append(out, text[pos+loc[0]:pos+loc[1]])
		pos += loc[1]
	}
	return out
}

// ExtractCompact returns the closed-list tickers found as whole words of the
// uppercased text, the first distinct money or percentage figures and the
// first distinct 20xx years.
func ExtractCompact(text string) CompactEntities {
	return CompactEntities{
		Tickers: distinct(findWholeWords(reCompactTicker, strings.ToUpper(text)), 0),
		Numbers: distinct(reCompactNumber.FindAllString(text, -1), MaxCompactNumbers),
		Years:   distinct(findWholeWords(reYear, text), MaxCompactYears),
	}
}

// lastDate returns the last date-pattern match in text.
func lastDate(text string) (string, bool) {
	matches := reDate.FindAllString(text, -1)
	if len(matches) == 0 {
		return "", false
	}
	return matches[len(matches)-1], true
}
