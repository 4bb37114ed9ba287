package domain

import "encoding/json"

// Token is a single outcome token attached to a raw market.
type Token struct {
	TokenID *string  `json:"token_id,omitempty"`
	Outcome string   `json:"outcome,omitempty"`
	Price   *float64 `json:"price,omitempty"`
	Winner  *bool    `json:"winner,omitempty"`
}

// RawMarket is a market record as captured from the Polymarket APIs, before
// any normalization. Optional fields are pointers so absence is explicit.
type RawMarket struct {
	Question         string          `json:"question"`
	Description      string          `json:"description"`
	Category         *string         `json:"category"`
	EndDateISO       *string         `json:"end_date_iso"`
	GameStartTime    *string         `json:"game_start_time"`
	ConditionID      *string         `json:"condition_id"`
	QuestionID       *string         `json:"question_id"`
	MarketSlug       *string         `json:"market_slug"`
	Active           *bool           `json:"active"`
	Closed           *bool           `json:"closed"`
	Archived         *bool           `json:"archived"`
	AcceptingOrders  *bool           `json:"accepting_orders"`
	MinimumOrderSize *float64        `json:"minimum_order_size"`
	MinimumTickSize  *float64        `json:"minimum_tick_size"`
	SecondsDelay     *int            `json:"seconds_delay"`
	FPMM             *string         `json:"fpmm"`
	Icon             *string         `json:"icon"`
	Tokens           []Token         `json:"tokens"`
	Rewards          json.RawMessage `json:"rewards"`
}

// AssetIDs returns the non-empty token IDs of the market in order.
func (m RawMarket) AssetIDs() []string {
	var ids []string
	for _, t := range m.Tokens {
		if t.TokenID != nil && *t.TokenID != "" {
			ids = append(ids, *t.TokenID)
		}
	}
	return ids
}

// BoolOr dereferences b, returning def when b is nil.
func BoolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// StringOr dereferences s, returning def when s is nil.
func StringOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

// NonEmpty reports whether s is set and not the empty string.
func NonEmpty(s *string) bool {
	return s != nil && *s != ""
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
