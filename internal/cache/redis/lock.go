package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

// Both scripts act only while the key still holds the caller's token.
var (
	releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0`)
)

// LockManager implements domain.LockManager with SET NX PX. A held lock is
// extended every third of its TTL until released, so a run that outlives
// the TTL keeps it.
type LockManager struct {
	rdb *redis.Client
}

// NewLockManager creates a LockManager backed by the given Client.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{rdb: c.rdb}
}

func lockKey(key string) string {
	return "lock:" + key
}

// Acquire takes the lock or returns domain.ErrLockHeld. The returned unlock
// stops the refresh and releases the key; it may be called more than once.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	lk := lockKey(key)

	ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("redis: lock %s: %w", key, domain.ErrLockHeld)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go lm.refresh(lk, token, ttl, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, lm.rdb, []string{lk}, token).Err()
		})
	}, nil
}

// refresh extends the lock until stop closes or the token is gone.
func (lm *LockManager) refresh(lk, token string, ttl time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(max(ttl/3, 10*time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			n, err := extendScript.Run(ctx, lm.rdb, []string{lk}, token, ttl.Milliseconds()).Int()
			cancel()
			if err == nil && n == 0 {
				return
			}
		}
	}
}

var _ domain.LockManager = (*LockManager)(nil)
