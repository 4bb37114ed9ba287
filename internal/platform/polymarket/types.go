package polymarket

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a numeric string. Unparsable
// strings decode to zero.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, _ = strconv.ParseFloat(strings.TrimSpace(s), 64)
	*f = flexFloat(v)
	return nil
}

// MarketPage is one page of markets returned by either API.
type MarketPage struct {
	Markets    []domain.RawMarket
	NextCursor string
}

// --------------------------------------------------------------------------
// CLOB DTOs
// --------------------------------------------------------------------------

// clobMarketsResponse is the envelope of GET /markets on the CLOB API.
type clobMarketsResponse struct {
	Limit      int         `json:"limit"`
	Count      int         `json:"count"`
	NextCursor string      `json:"next_cursor"`
	Data       []APIMarket `json:"data"`
}

// APIMarket represents a market as returned by the CLOB /markets endpoint.
type APIMarket struct {
	Question         string          `json:"question"`
	Description      string          `json:"description"`
	Category         *string         `json:"category"`
	EndDateISO       *string         `json:"end_date_iso"`
	GameStartTime    *string         `json:"game_start_time"`
	ConditionID      *string         `json:"condition_id"`
	QuestionID       *string         `json:"question_id"`
	MarketSlug       *string         `json:"market_slug"`
	Active           *flexBool       `json:"active"`
	Closed           *flexBool       `json:"closed"`
	Archived         *flexBool       `json:"archived"`
	AcceptingOrders  *flexBool       `json:"accepting_orders"`
	MinimumOrderSize *flexFloat      `json:"minimum_order_size"`
	MinimumTickSize  *flexFloat      `json:"minimum_tick_size"`
	SecondsDelay     *int            `json:"seconds_delay"`
	FPMM             *string         `json:"fpmm"`
	Icon             *string         `json:"icon"`
	Tokens           []APIToken      `json:"tokens"`
	Rewards          json.RawMessage `json:"rewards"`
}

// APIToken represents a token entry inside a CLOB market.
type APIToken struct {
	TokenID string     `json:"token_id"`
	Outcome string     `json:"outcome"`
	Price   *flexFloat `json:"price"`
	Winner  *flexBool  `json:"winner"`
}

// ToRawMarket converts a CLOB market into a domain.RawMarket, applying the
// ingestion defaults for missing status flags.
func (m *APIMarket) ToRawMarket() domain.RawMarket {
	rm := domain.RawMarket{
		Question:         m.Question,
		Description:      m.Description,
		Category:         m.Category,
		EndDateISO:       m.EndDateISO,
		GameStartTime:    m.GameStartTime,
		ConditionID:      m.ConditionID,
		QuestionID:       m.QuestionID,
		MarketSlug:       m.MarketSlug,
		Active:           boolOr(m.Active, defaultActive),
		Closed:           boolOr(m.Closed, defaultClosed),
		Archived:         boolOr(m.Archived, defaultArchived),
		AcceptingOrders:  boolOr(m.AcceptingOrders, defaultAcceptingOrders),
		MinimumOrderSize: floatPtr(m.MinimumOrderSize),
		MinimumTickSize:  floatPtr(m.MinimumTickSize),
		SecondsDelay:     m.SecondsDelay,
		FPMM:             m.FPMM,
		Icon:             m.Icon,
		Tokens:           make([]domain.Token, 0, len(m.Tokens)),
		Rewards:          nullIfEmpty(m.Rewards),
	}
	for _, t := range m.Tokens {
		tok := domain.Token{Outcome: t.Outcome, Price: floatPtr(t.Price)}
		if t.TokenID != "" {
			tok.TokenID = domain.Ptr(t.TokenID)
		}
		if t.Winner != nil {
			tok.Winner = domain.Ptr(bool(*t.Winner))
		}
		rm.Tokens = append(rm.Tokens, tok)
	}
	return rm
}

// --------------------------------------------------------------------------
// Gamma DTOs
// --------------------------------------------------------------------------

// GammaMarket represents a market as returned by the Gamma /markets endpoint.
// Outcomes, prices and token IDs arrive as JSON-encoded string arrays.
type GammaMarket struct {
	ID              string          `json:"id"`
	Question        string          `json:"question"`
	Description     string          `json:"description"`
	Category        *string         `json:"category"`
	ConditionID     *string         `json:"conditionId"`
	QuestionID      *string         `json:"questionID"`
	Slug            *string         `json:"slug"`
	EndDateISO      *string         `json:"endDateIso"`
	EndDate         *string         `json:"endDate"`
	GameStartTime   *string         `json:"gameStartTime"`
	Active          *flexBool       `json:"active"`
	Closed          *flexBool       `json:"closed"`
	Archived        *flexBool       `json:"archived"`
	AcceptingOrders *flexBool       `json:"acceptingOrders"`
	OrderMinSize    *flexFloat      `json:"orderMinSize"`
	TickSize        *flexFloat      `json:"orderPriceMinTickSize"`
	SecondsDelay    *int            `json:"secondsDelay"`
	MarketMaker     *string         `json:"marketMakerAddress"`
	Icon            *string         `json:"icon"`
	Outcomes        string          `json:"outcomes"`      // e.g. "[\"Yes\",\"No\"]"
	OutcomePrices   string          `json:"outcomePrices"` // e.g. "[\"0.5\",\"0.5\"]"
	ClobTokenIDs    string          `json:"clobTokenIds"`  // e.g. "[\"123\",\"456\"]"
	ClobRewards     json.RawMessage `json:"clobRewards"`
}

// ToRawMarket converts a Gamma market into a domain.RawMarket. Tokens are
// rebuilt by zipping the encoded outcome, price and token ID arrays.
func (g *GammaMarket) ToRawMarket() domain.RawMarket {
	end := g.EndDateISO
	if !domain.NonEmpty(end) {
		end = g.EndDate
	}
	rm := domain.RawMarket{
		Question:         g.Question,
		Description:      g.Description,
		Category:         g.Category,
		EndDateISO:       end,
		GameStartTime:    g.GameStartTime,
		ConditionID:      g.ConditionID,
		QuestionID:       g.QuestionID,
		MarketSlug:       g.Slug,
		Active:           boolOr(g.Active, defaultActive),
		Closed:           boolOr(g.Closed, defaultClosed),
		Archived:         boolOr(g.Archived, defaultArchived),
		AcceptingOrders:  boolOr(g.AcceptingOrders, defaultAcceptingOrders),
		MinimumOrderSize: floatPtr(g.OrderMinSize),
		MinimumTickSize:  floatPtr(g.TickSize),
		SecondsDelay:     g.SecondsDelay,
		FPMM:             g.MarketMaker,
		Icon:             g.Icon,
		Tokens:           []domain.Token{},
		Rewards:          nullIfEmpty(g.ClobRewards),
	}

	outcomes := decodeStringArray(g.Outcomes)
	prices := decodeStringArray(g.OutcomePrices)
	ids := decodeStringArray(g.ClobTokenIDs)
	n := max(len(outcomes), len(ids))
	for i := range n {
		var tok domain.Token
		if i < len(outcomes) {
			tok.Outcome = outcomes[i]
		}
		if i < len(ids) && ids[i] != "" {
			tok.TokenID = domain.Ptr(ids[i])
		}
		if i < len(prices) {
			if p, err := strconv.ParseFloat(prices[i], 64); err == nil {
				tok.Price = &p
			}
		}
		rm.Tokens = append(rm.Tokens, tok)
	}
	return rm
}

// decodeGammaPage accepts either a bare array of markets or an object with
// "data" and "next_cursor" members.
func decodeGammaPage(body []byte) ([]GammaMarket, string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var markets []GammaMarket
		if err := json.Unmarshal(trimmed, &markets); err != nil {
			return nil, "", err
		}
		return markets, "", nil
	}
	var envelope struct {
		Data       []GammaMarket `json:"data"`
		NextCursor string        `json:"next_cursor"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, "", err
	}
	return envelope.Data, envelope.NextCursor, nil
}

// --------------------------------------------------------------------------
// Conversion helpers
// --------------------------------------------------------------------------

// Ingestion defaults applied when a status flag is missing from the API.
const (
	defaultActive          = false
	defaultClosed          = true
	defaultArchived        = true
	defaultAcceptingOrders = false
)

func boolOr(b *flexBool, def bool) *bool {
	if b == nil {
		return domain.Ptr(def)
	}
	return domain.Ptr(bool(*b))
}

func floatPtr(f *flexFloat) *float64 {
	if f == nil {
		return nil
	}
	return domain.Ptr(float64(*f))
}

func nullIfEmpty(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return raw
}

func decodeStringArray(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
