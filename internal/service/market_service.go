package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

// Listing bounds applied by MarketService.List.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// MarketService serves normalized compact markets, reading through the cache
// when one is configured.
type MarketService struct {
	markets domain.MarketStore
	cache   domain.MarketCache
	logger  *slog.Logger
}

// NewMarketService creates a MarketService. cache may be nil.
func NewMarketService(markets domain.MarketStore, cache domain.MarketCache, logger *slog.Logger) *MarketService {
	return &MarketService{
		markets: markets,
		cache:   cache,
		logger:  logger.With(slog.String("component", "market_service")),
	}
}

// GetMarket retrieves a market by ID, checking the cache first and falling
// back to the persistent store on a cache miss.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.CompactMarket, error) {
	if s.cache != nil {
		m, err := s.cache.Get(ctx, id)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "cache get failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.CompactMarket{}, fmt.Errorf("market_service: get by id %q: %w", id, err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
			s.logger.WarnContext(ctx, "cache set failed",
				slog.String("market_id", id),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return m, nil
}

// List returns markets matching filter from the persistent store. The limit
// defaults to DefaultListLimit and is capped at MaxListLimit.
func (s *MarketService) List(ctx context.Context, filter domain.MarketFilter) ([]domain.CompactMarket, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	filter.Limit = min(filter.Limit, MaxListLimit)
	filter.Offset = max(filter.Offset, 0)

	markets, err := s.markets.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	if markets == nil {
		markets = []domain.CompactMarket{}
	}
	return markets, nil
}

// Count returns the number of stored markets matching filter.
func (s *MarketService) Count(ctx context.Context, filter domain.MarketFilter) (int64, error) {
	count, err := s.markets.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("market_service: count: %w", err)
	}
	return count, nil
}
