package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/alanyoungcy/marketnorm/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultStreamMaxLen is the approximate stream length kept when
// NewSignalBus is given a non-positive bound.
const DefaultStreamMaxLen int64 = 1000

// SignalBus implements domain.SignalBus using Redis Pub/Sub for run
// completion events and Redis Streams for the durable run history.
type SignalBus struct {
	rdb    *redis.Client
	maxLen int64
}

// NewSignalBus creates a SignalBus backed by the given Client. Streams are
// trimmed to roughly maxLen entries.
func NewSignalBus(c *Client, maxLen int) *SignalBus {
	n := int64(maxLen)
	if n <= 0 {
		n = DefaultStreamMaxLen
	}
	return &SignalBus{rdb: c.rdb, maxLen: n}
}

// Publish sends a raw byte payload to a Redis Pub/Sub channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe creates a Redis Pub/Sub subscription and returns a read-only
// channel that emits raw byte payloads. The subscription is automatically
// closed when the context is cancelled; the returned channel is closed at
// that point as well.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	var pubsub *redis.PubSub
	if hasPattern(channel) {
		pubsub = sb.rdb.PSubscribe(ctx, channel)
	} else {
		pubsub = sb.rdb.Subscribe(ctx, channel)
	}

	// Verify the subscription is established by receiving the confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// hasPattern returns true when the Redis channel includes glob-style
// wildcards, in which case PSubscribe must be used instead of Subscribe.
func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

// StreamAppend appends a payload to a Redis stream using XADD with an
// approximate MAXLEN for automatic trimming.
func (sb *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: stream,
		MaxLen: sb.maxLen,
		Approx: true,
		Values: map[string]any{
			"payload": payload,
		},
	}
	if err := sb.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

// StreamTail returns the newest n entries of stream, oldest first. A missing
// stream yields an empty slice.
func (sb *SignalBus) StreamTail(ctx context.Context, stream string, n int) ([]domain.StreamMessage, error) {
	if n <= 0 {
		return nil, nil
	}
	msgs, err := sb.rdb.XRevRangeN(ctx, stream, "+", "-", int64(n)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: stream tail %s: %w", stream, err)
	}

	out := make([]domain.StreamMessage, 0, len(msgs))
	for _, msg := range slices.Backward(msgs) {
		if data, ok := streamPayload(msg.Values); ok {
			out = append(out, domain.StreamMessage{ID: msg.ID, Payload: data})
		}
	}
	return out, nil
}

// streamPayload extracts the "payload" field written by StreamAppend.
func streamPayload(values map[string]any) ([]byte, bool) {
	switch v := values["payload"].(type) {
	case string:
		return []byte(v), true
	case []byte:
		return v, true
	default:
		return nil, false
	}
}

// Compile-time interface check.
var _ domain.SignalBus = (*SignalBus)(nil)
