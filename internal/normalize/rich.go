package normalize

import (
	"strings"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

// Flag defaults applied when a raw record leaves the field unset.
const (
	RichDefaultActive          = false
	RichDefaultClosed          = false
	RichDefaultArchived        = false
	RichDefaultAcceptingOrders = false
)

// RichNormalizer builds the search-ready NormalizedMarket.
type RichNormalizer struct {
	cleaner    Cleaner
	stripper   *Stripper
	expander   *Expander
	classifier Classifier
	dates      DateNormalizer
}

// NewRichNormalizer wires the rich components over tables.
func NewRichNormalizer(t Tables) *RichNormalizer {
	return &RichNormalizer{
		stripper:   NewStripper(t.Boilerplate),
		expander:   NewExpander(t.Abbreviations),
		classifier: NewFirstMatchClassifier(t.RichCategories),
		dates:      DateNormalizer{Fallback: true},
	}
}

// Normalize converts one raw market. Entities, category and the fallback end
// date are taken from the raw text; the searchable text is built from the
// cleaned, stripped and expanded text.
func (n *RichNormalizer) Normalize(m domain.RawMarket) (domain.NormalizedMarket, error) {
	if err := validateText(m); err != nil {
		return domain.NormalizedMarket{}, err
	}

	question := n.cleaner.Clean(m.Question)
	description := n.stripper.Strip(n.cleaner.Clean(m.Description))
	category := n.classifier.Classify(m.Question, m.Description, m.Category)

	tokens := m.Tokens
	if tokens == nil {
		tokens = []domain.Token{}
	}

	return domain.NormalizedMarket{
		Question:    m.Question,
		MarketSlug:  m.MarketSlug,
		ConditionID: m.ConditionID,
		QuestionID:  m.QuestionID,

		QuestionNormalized:    question,
		DescriptionNormalized: description,
		SearchableText:        n.searchableText(domain.StringOr(m.Category, ""), question, description),

		Entities: Extract(m.Question + " " + m.Description),
		Category: category,

		EndDate:       n.dates.Normalize(m.EndDateISO, m.Description),
		EndDateISO:    m.EndDateISO,
		GameStartTime: m.GameStartTime,

		Active:          domain.BoolOr(m.Active, RichDefaultActive),
		Closed:          domain.BoolOr(m.Closed, RichDefaultClosed),
		Archived:        domain.BoolOr(m.Archived, RichDefaultArchived),
		AcceptingOrders: domain.BoolOr(m.AcceptingOrders, RichDefaultAcceptingOrders),

		Icon:             m.Icon,
		Tokens:           tokens,
		Rewards:          m.Rewards,
		HasLiquidityData: len(m.Tokens) > 0,
	}, nil
}

// searchableText renders "question. description" with abbreviations
// expanded in both halves, tagged "[category] " when the raw record carries a
// category. The tag uses the raw value, not the inferred label.
func (n *RichNormalizer) searchableText(rawCategory, question, description string) string {
	var b strings.Builder
	if strings.TrimSpace(rawCategory) != "" {
		b.WriteString("[")
		b.WriteString(rawCategory)
		b.WriteString("] ")
	}
	b.WriteString(n.expander.Expand(question))
	b.WriteString(". ")
	b.WriteString(n.expander.Expand(description))
	return b.String()
}
