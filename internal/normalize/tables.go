package normalize

// Abbreviation maps a short form to its expansion.
type Abbreviation struct {
	Short     string
	Expansion string
}

// CategoryRule is one category label and the keywords that signal it.
type CategoryRule struct {
	Label    string
	Keywords []string
}

// Tables bundles the fixed lookup data the normalizers run on. A Tables value
// is built once and only read afterwards; DefaultTables returns fresh copies
// so callers can never alter the package defaults.
type Tables struct {
	Abbreviations     []Abbreviation
	Boilerplate       []string
	RichCategories    []CategoryRule
	CompactCategories []CategoryRule
	StopWords         map[string]struct{}
}

// DefaultTables returns the built-in abbreviation, boilerplate, category and
// stop word tables.
func DefaultTables() Tables {
	stop := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		stop[w] = struct{}{}
	}
	return Tables{
		Abbreviations:     append([]Abbreviation(nil), abbreviations...),
		Boilerplate:       append([]string(nil), boilerplatePhrases...),
		RichCategories:    copyRules(richCategories),
		CompactCategories: copyRules(compactCategories),
		StopWords:         stop,
	}
}

func copyRules(rules []CategoryRule) []CategoryRule {
	out := make([]CategoryRule, len(rules))
	for i, r := range rules {
		out[i] = CategoryRule{Label: r.Label, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// CategoryOther is returned when no rule matches.
const CategoryOther = "other"

var abbreviations = []Abbreviation{
	{"POTUS", "President of the United States"},
	{"SCOTUS", "Supreme Court of the United States"},
	{"VP", "Vice President"},
	{"PM", "Prime Minister"},
	{"CEO", "Chief Executive Officer"},
	{"BTC", "Bitcoin"},
	{"ETH", "Ethereum"},
	{"SOL", "Solana"},
	{"GDP", "Gross Domestic Product"},
	{"CPI", "Consumer Price Index"},
	{"Fed", "Federal Reserve"},
	{"FOMC", "Federal Open Market Committee"},
	{"SEC", "Securities and Exchange Commission"},
	{"NFT", "Non-Fungible Token"},
	{"DeFi", "Decentralized Finance"},
	{"AI", "Artificial Intelligence"},
	{"UEFA", "Union of European Football Associations"},
	{"NBA", "National Basketball Association"},
	{"NFL", "National Football League"},
	{"MLB", "Major League Baseball"},
	{"IPO", "Initial Public Offering"},
	{"Q1", "First Quarter"},
	{"Q2", "Second Quarter"},
	{"Q3", "Third Quarter"},
	{"Q4", "Fourth Quarter"},
}

var boilerplatePhrases = []string{
	"This market will resolve to",
	"Otherwise, this market will resolve to",
	"The resolution source will be",
	"The primary resolution source",
	"however a consensus of credible reporting may also be used",
	"Please refer to",
}

// Declaration order is the first-match order.
var richCategories = []CategoryRule{
	{"politics", []string{"election", "president", "senate", "congress", "vote", "candidate", "political"}},
	{"crypto", []string{"btc", "eth", "crypto", "bitcoin", "ethereum", "defi", "nft", "blockchain"}},
	{"economics", []string{"gdp", "recession", "inflation", "rate", "fed", "economy", "unemployment"}},
	{"sports", []string{"nba", "nfl", "mlb", "uefa", "world cup", "championship", "game", "match", "team"}},
	{"finance", []string{"stock", "market", "nasdaq", "s&p", "dow", "earnings", "ipo"}},
	{"technology", []string{"ai", "chatgpt", "technology", "tech", "software", "openai", "google", "meta"}},
	{"weather", []string{"weather", "climate", "temperature", "hurricane", "earthquake"}},
	{"entertainment", []string{"movie", "oscar", "emmy", "grammy", "box office", "film"}},
}

// Declaration order breaks score ties.
var compactCategories = []CategoryRule{
	{"politics", []string{"election", "president", "senate", "congress", "vote", "trump", "biden",
		"republican", "democrat", "governor", "political", "politic"}},
	{"crypto", []string{"bitcoin", "btc", "ethereum", "eth", "crypto", "solana", "sol", "usdt",
		"defi", "nft", "blockchain", "coin", "token", "wallet"}},
	{"economics", []string{"gdp", "recession", "inflation", "fed", "federal reserve", "interest rate",
		"unemployment", "economy", "economic", "cpi", "jobs report"}},
	{"sports", []string{"nba", "nfl", "mlb", "nhl", "uefa", "world cup", "super bowl", "championship",
		"playoffs", "game", "match", "team", "player", "sport"}},
	{"finance", []string{"stock", "market", "nasdaq", "s&p", "dow", "earnings", "ipo", "revenue",
		"profit", "share", "investor", "trading"}},
	{"technology", []string{"ai", "chatgpt", "openai", "google", "meta", "apple", "amazon", "microsoft",
		"tech", "software", "app", "platform"}},
	{"entertainment", []string{"movie", "film", "oscar", "emmy", "grammy", "box office", "album",
		"actor", "artist", "tv show", "netflix"}},
}

var stopWords = []string{
	"the", "be", "to", "of", "and", "a", "in", "that", "have", "i", "it", "for",
	"not", "on", "with", "he", "as", "you", "do", "at", "this", "but", "his", "by",
	"from", "they", "we", "say", "her", "she", "or", "an", "will", "my", "one", "all",
	"would", "there", "their", "what", "so", "up", "out", "if", "about", "who", "get",
	"which", "go", "me", "when", "make", "can", "like", "time", "no", "just", "him",
	"know", "take", "people", "into", "year", "your", "some", "could", "them", "see",
	"other", "than", "then", "now", "look", "only", "come", "its", "over", "think",
	"also", "back", "after", "use", "two", "how", "our", "work", "first", "well",
	"way", "even", "new", "want", "because", "any", "these", "give", "day", "most", "us",
	"is", "are", "was", "were", "been", "being", "has", "had", "does", "did", "doing",
}
