package domain

import (
	"context"
	"time"
)

// MarketCache provides fast compact market lookups.
type MarketCache interface {
	Set(ctx context.Context, market CompactMarket) error
	SetBatch(ctx context.Context, markets []CompactMarket) error
	Get(ctx context.Context, id string) (CompactMarket, error)
	Invalidate(ctx context.Context, id string) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage is one entry of a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus carries run events: pub/sub for live delivery and a bounded
// durable stream for history.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	// StreamTail returns the newest n entries, oldest first.
	StreamTail(ctx context.Context, stream string, n int) ([]StreamMessage, error)
}
