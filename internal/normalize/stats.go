package normalize

import "github.com/alanyoungcy/marketnorm/internal/domain"

// Stats summarises a result: category distribution, how many markets carry
// each entity kind and the mean keyword count (compact only).
func Stats(r Result) domain.BatchStats {
	s := domain.BatchStats{
		TotalMarkets: r.TotalMarkets(),
		FailedCount:  r.FailedCount(),
		Categories:   make(map[string]int),
		Coverage:     make(map[string]int),
	}
	switch {
	case r.Rich != nil:
		for _, m := range r.Rich.Markets {
			s.Categories[m.Category]++
			countIf(s.Coverage, "tickers", len(m.Entities.Tickers) > 0)
			countIf(s.Coverage, "prices", len(m.Entities.Prices) > 0)
			countIf(s.Coverage, "dates", len(m.Entities.Dates) > 0)
		}
	case r.Compact != nil:
		keywords := 0
		for _, m := range r.Compact.Markets {
			s.Categories[m.Category]++
			countIf(s.Coverage, "tickers", len(m.Tickers) > 0)
			countIf(s.Coverage, "numbers", len(m.Numbers) > 0)
			countIf(s.Coverage, "years", len(m.Years) > 0)
			keywords += len(m.Keywords)
		}
		if n := len(r.Compact.Markets); n > 0 {
			s.AvgKeywords = float64(keywords) / float64(n)
		}
	}
	return s
}

func countIf(m map[string]int, key string, ok bool) {
	if _, present := m[key]; !present {
		m[key] = 0
	}
	if ok {
		m[key]++
	}
}
