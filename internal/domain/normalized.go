package domain

import "encoding/json"

// Normalization variants.
const (
	VariantRich   = "rich"
	VariantSimple = "simple"
)

// EntitySet holds the pattern-extracted entities of a market. Each list is
// deduplicated and kept in first-seen order.
type EntitySet struct {
	Tickers     []string `json:"tickers"`
	Prices      []string `json:"prices"`
	Dates       []string `json:"dates"`
	Comparators []string `json:"comparators"`
}

// NormalizedMarket is the rich, search-ready representation of a market.
type NormalizedMarket struct {
	Question    string  `json:"question"`
	MarketSlug  *string `json:"market_slug"`
	ConditionID *string `json:"condition_id"`
	QuestionID  *string `json:"question_id"`

	QuestionNormalized    string `json:"question_normalized"`
	DescriptionNormalized string `json:"description_normalized"`
	SearchableText        string `json:"searchable_text"`

	Entities EntitySet `json:"entities"`
	Category string    `json:"category"`

	EndDate       *string `json:"end_date"`
	EndDateISO    *string `json:"end_date_iso"`
	GameStartTime *string `json:"game_start_time"`

	Active          bool `json:"active"`
	Closed          bool `json:"closed"`
	Archived        bool `json:"archived"`
	AcceptingOrders bool `json:"accepting_orders"`

	Icon             *string         `json:"icon"`
	Tokens           []Token         `json:"tokens"`
	Rewards          json.RawMessage `json:"rewards"`
	HasLiquidityData bool            `json:"has_liquidity_data"`
}

// CompactMarket is the lightweight representation produced by the simple
// normalizer. ID is unique within the batch it was emitted in.
type CompactMarket struct {
	ID          string  `json:"id"`
	ConditionID *string `json:"condition_id"`
	QuestionID  *string `json:"question_id"`
	Question    string  `json:"question"`
	Slug        *string `json:"slug"`

	SearchText string   `json:"search_text"`
	Keywords   []string `json:"keywords"`
	Category   string   `json:"category"`

	Tickers []string `json:"tickers"`
	Numbers []string `json:"numbers"`
	Years   []string `json:"years"`

	EndDate *string `json:"end_date"`
	Active  bool    `json:"active"`
	Closed  bool    `json:"closed"`
	Icon    *string `json:"icon"`
}

// Batch is the output of one normalization run over a snapshot.
type Batch[T any] struct {
	Timestamp         *float64 `json:"timestamp"`
	NormalizedAt      string   `json:"normalized_at"`
	NormalizationType string   `json:"normalization_type"`
	OnlyOpenMarkets   *bool    `json:"only_open_markets,omitempty"`
	TotalMarkets      int      `json:"total_markets"`
	FailedCount       int      `json:"failed_count"`
	Markets           []T      `json:"markets"`
}

// RichBatch and CompactBatch are the two concrete batch shapes.
type (
	RichBatch    = Batch[NormalizedMarket]
	CompactBatch = Batch[CompactMarket]
)
