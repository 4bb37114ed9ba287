package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketFilter narrows a compact market listing.
type MarketFilter struct {
	Category   string
	ActiveOnly bool
	Query      string // substring match against search_text
	Limit      int
	Offset     int
}

// MarketStore persists compact market records.
type MarketStore interface {
	UpsertBatch(ctx context.Context, markets []CompactMarket) error
	GetByID(ctx context.Context, id string) (CompactMarket, error)
	List(ctx context.Context, filter MarketFilter) ([]CompactMarket, error)
	Count(ctx context.Context, filter MarketFilter) (int64, error)
}

// RunStore persists an append-only history of normalization runs.
type RunStore interface {
	Insert(ctx context.Context, run RunRecord) error
	ListRecent(ctx context.Context, opts ListOpts) ([]RunRecord, error)
}
