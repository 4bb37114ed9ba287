package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

const (
	// HashIDLen is the number of hex characters kept from the question digest.
	HashIDLen = 16
	// MaxSlugLen bounds derived slugs, in runes.
	MaxSlugLen = 60
)

var (
	reSlugStrip = regexp.MustCompile(`[^\p{L}\p{N}_\s-]+`)
	reSlugSep   = regexp.MustCompile(`[-\s]+`)
)

// ResolveID returns the market identifier: the first non-empty of condition
// ID, question ID and slug. Without any of them the ID is the question digest
// and the slug is derived from the question. The returned slug is the one to
// store on the compact record.
func ResolveID(m domain.RawMarket) (id string, slug *string) {
	switch {
	case domain.NonEmpty(m.ConditionID):
		return *m.ConditionID, m.MarketSlug
	case domain.NonEmpty(m.QuestionID):
		return *m.QuestionID, m.MarketSlug
	case domain.NonEmpty(m.MarketSlug):
		return *m.MarketSlug, m.MarketSlug
	}
	derived := Slugify(m.Question)
	return HashID(m.Question), &derived
}

// HashID is the content-addressed fallback identifier of a question.
func HashID(question string) string {
	sum := md5.Sum([]byte(question))
	return hex.EncodeToString(sum[:])[:HashIDLen]
}

// Slugify derives a URL-safe slug from text.
func Slugify(text string) string {
	s := strings.ToLower(text)
	s = reSlugStrip.ReplaceAllString(s, "")
	s = reSlugSep.ReplaceAllString(s, "-")
	if r := []rune(s); len(r) > MaxSlugLen {
		s = string(r[:MaxSlugLen])
	}
	return strings.Trim(s, "-")
}

// Deduplicate makes IDs unique across markets in a single pass. The first
// occurrence of an ID keeps it; later ones get "_1", "_2", ... counted per
// base ID. A suffixed candidate that is already taken is skipped.
func Deduplicate(markets []domain.CompactMarket) {
	seen := make(map[string]int, len(markets))
	taken := make(map[string]struct{}, len(markets))
	for i := range markets {
		base := markets[i].ID
		id := base
		if _, clash := taken[id]; clash {
			n := seen[base]
			for {
				n++
				id = base + "_" + strconv.Itoa(n)
				if _, clash := taken[id]; !clash {
					break
				}
			}
			seen[base] = n
		}
		taken[id] = struct{}{}
		markets[i].ID = id
	}
}
