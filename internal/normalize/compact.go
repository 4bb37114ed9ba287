package normalize

import "github.com/alanyoungcy/marketnorm/internal/domain"

// Flag defaults applied when a raw record leaves the field unset.
const (
	CompactDefaultActive = false
	CompactDefaultClosed = false
)

// DefaultSearchDescLimit is how many runes of the cleaned description go into
// a compact search text.
const DefaultSearchDescLimit = 200

// CompactNormalizer builds the lightweight CompactMarket.
type CompactNormalizer struct {
	cleaner    Cleaner
	classifier Classifier
	keywords   *KeywordExtractor
	dates      DateNormalizer
	descLimit  int
}

// NewCompactNormalizer wires the compact components over tables.
func NewCompactNormalizer(t Tables, keywordCap, descLimit int) *CompactNormalizer {
	if descLimit <= 0 {
		descLimit = DefaultSearchDescLimit
	}
	return &CompactNormalizer{
		classifier: NewScoringClassifier(t.CompactCategories),
		keywords:   NewKeywordExtractor(t.StopWords, keywordCap),
		descLimit:  descLimit,
	}
}

// Normalize converts one raw market. The returned ID is not yet unique across
// a batch; see Deduplicate.
func (n *CompactNormalizer) Normalize(m domain.RawMarket) (domain.CompactMarket, error) {
	if err := validateText(m); err != nil {
		return domain.CompactMarket{}, err
	}

	combined := m.Question + " " + m.Description
	category := n.classifier.Classify(m.Question, m.Description, nil)
	entities := ExtractCompact(combined)
	id, slug := ResolveID(m)

	return domain.CompactMarket{
		ID:          id,
		ConditionID: m.ConditionID,
		QuestionID:  m.QuestionID,
		Question:    m.Question,
		Slug:        slug,

		SearchText: n.searchText(category, m.Question, m.Description),
		Keywords:   n.keywords.Extract(combined),
		Category:   category,

		Tickers: entities.Tickers,
		Numbers: entities.Numbers,
		Years:   entities.Years,

		EndDate: n.dates.Normalize(m.EndDateISO, ""),
		Active:  domain.BoolOr(m.Active, CompactDefaultActive),
		Closed:  domain.BoolOr(m.Closed, CompactDefaultClosed),
		Icon:    m.Icon,
	}, nil
}

func (n *CompactNormalizer) searchText(category, question, description string) string {
	q := n.cleaner.CleanCompact(question)
	d := n.cleaner.CleanCompact(description)
	if r := []rune(d); len(r) > n.descLimit {
		d = string(r[:n.descLimit])
	}
	return "[" + category + "] " + q + " " + d
}
