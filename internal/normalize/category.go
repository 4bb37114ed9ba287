package normalize

import "strings"

// Classifier assigns a category label to a market.
type Classifier interface {
	Classify(question, description string, explicit *string) string
}

// FirstMatchClassifier honours an explicit category and otherwise returns the
// first rule with any keyword contained in the text.
type FirstMatchClassifier struct {
	rules []CategoryRule
}

// NewFirstMatchClassifier returns a classifier evaluating rules in order.
func NewFirstMatchClassifier(rules []CategoryRule) *FirstMatchClassifier {
	return &FirstMatchClassifier{rules: copyRules(rules)}
}

// Classify returns the trimmed, lowercased explicit category when one is set.
// A blank explicit category counts as absent.
func (c *FirstMatchClassifier) Classify(question, description string, explicit *string) string {
	if explicit != nil {
		if cat := strings.ToLower(strings.TrimSpace(*explicit)); cat != "" {
			return cat
		}
	}
	combined := strings.ToLower(question + " " + description)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(combined, kw) {
				return rule.Label
			}
		}
	}
	return CategoryOther
}

// ScoringClassifier ignores any explicit category and picks the rule with the
// most distinct keyword hits. Ties go to the rule declared first.
type ScoringClassifier struct {
	rules []CategoryRule
}

// NewScoringClassifier returns a classifier scoring every rule.
func NewScoringClassifier(rules []CategoryRule) *ScoringClassifier {
	return &ScoringClassifier{rules: copyRules(rules)}
}

func (c *ScoringClassifier) Classify(question, description string, _ *string) string {
	combined := strings.ToLower(question + " " + description)
	best, bestScore := CategoryOther, 0
	for _, rule := range c.rules {
		score := 0
		seen := make(map[string]struct{}, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			if strings.Contains(combined, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = rule.Label, score
		}
	}
	return best
}

var (
	_ Classifier = (*FirstMatchClassifier)(nil)
	_ Classifier = (*ScoringClassifier)(nil)
)

// Labels returns the closed set of labels the rules can produce, plus
// CategoryOther.
func Labels(rules []CategoryRule) []string {
	out := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.Label)
	}
	return append(out, CategoryOther)
}
