package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/alanyoungcy/marketnorm/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultMarketTTL applies when NewMarketCache is given a non-positive TTL.
const DefaultMarketTTL = 24 * time.Hour

// MarketCache caches compact markets as Redis hashes.
//
// Key schema:
//
//	market:{id} - hash with fields "data" (JSON) and "category"
type MarketCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client, ttl time.Duration) *MarketCache {
	if ttl <= 0 {
		ttl = DefaultMarketTTL
	}
	return &MarketCache{rdb: c.rdb, ttl: ttl}
}

func marketKey(id string) string { return "market:" + id }

func (mc *MarketCache) queue(ctx context.Context, pipe redis.Pipeliner, market domain.CompactMarket) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", market.ID, err)
	}
	key := marketKey(market.ID)
	pipe.HSet(ctx, key, "data", data, "category", market.Category)
	pipe.Expire(ctx, key, mc.ttl)
	return nil
}

// Set stores a single market with the configured TTL.
func (mc *MarketCache) Set(ctx context.Context, market domain.CompactMarket) error {
	pipe := mc.rdb.TxPipeline()
	if err := mc.queue(ctx, pipe, market); err != nil {
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set market %s: %w", market.ID, err)
	}
	return nil
}

// setBatchChunk bounds the commands buffered by one SetBatch pipeline.
const setBatchChunk = 500

// SetBatch stores markets in pipelined round trips of setBatchChunk markets.
func (mc *MarketCache) SetBatch(ctx context.Context, markets []domain.CompactMarket) error {
	for chunk := range slices.Chunk(markets, setBatchChunk) {
		pipe := mc.rdb.Pipeline()
		for _, m := range chunk {
			if err := mc.queue(ctx, pipe, m); err != nil {
				return err
			}
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis: set market batch (%d): %w", len(chunk), err)
		}
	}
	return nil
}

// Get retrieves a market by its ID from the cache.
// It returns domain.ErrNotFound when the key does not exist.
func (mc *MarketCache) Get(ctx context.Context, id string) (domain.CompactMarket, error) {
	data, err := mc.rdb.HGet(ctx, marketKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.CompactMarket{}, domain.ErrNotFound
		}
		return domain.CompactMarket{}, fmt.Errorf("redis: get market %s: %w", id, err)
	}

	var market domain.CompactMarket
	if err := json.Unmarshal(data, &market); err != nil {
		return domain.CompactMarket{}, fmt.Errorf("redis: unmarshal market %s: %w", id, err)
	}
	return market, nil
}

// Invalidate removes a market from the cache.
func (mc *MarketCache) Invalidate(ctx context.Context, id string) error {
	if err := mc.rdb.Del(ctx, marketKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
