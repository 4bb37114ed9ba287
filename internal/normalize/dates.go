package normalize

import (
	"strings"
	"time"
)

// Layouts accepted by ParseISODate, tried in order.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseISODate parses an ISO-8601 date or date-time. A trailing "Z" is UTC;
// date-times without an offset are taken as UTC.
func ParseISODate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateNormalizer resolves a market's end date as YYYY-MM-DD.
type DateNormalizer struct {
	// Fallback enables scanning the description for a date when the
	// explicit one is missing or unparsable.
	Fallback bool
}

// Normalize formats the explicit end date in its own offset. With Fallback
// set it otherwise returns the last date mentioned in description verbatim.
// It returns nil when neither yields a date.
func (d DateNormalizer) Normalize(endDateISO *string, description string) *string {
	if endDateISO != nil {
		if t, ok := ParseISODate(*endDateISO); ok {
			s := t.Format(time.DateOnly)
			return &s
		}
	}
	if d.Fallback {
		if s, ok := lastDate(description); ok {
			return &s
		}
	}
	return nil
}
