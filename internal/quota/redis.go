package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// counterTTL keeps stale day counters around long enough to survive clock
// skew between app servers, then lets Redis reclaim them.
const counterTTL = 48 * time.Hour

// RedisStore persists usage counters in Redis so concurrent app servers
// share one source of truth. INCR/DECR are atomic server-side.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) redisKey(key Key) string {
	return fmt.Sprintf("usage:%s:%s", key.UserID, key.Day)
}

// Get returns the counter value (0 if the key does not exist).
func (s *RedisStore) Get(ctx context.Context, key Key) (int, error) {
	val, err := s.client.Get(ctx, s.redisKey(key)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("usage read failed: %w", err)
	}
	return val, nil
}

// Incr adds one atomically and returns the new value. The TTL is set when
// the counter is first created.
func (s *RedisStore) Incr(ctx context.Context, key Key) (int, error) {
	k := s.redisKey(key)
	val, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("usage increment failed: %w", err)
	}
	if val == 1 {
		// First touch today; expiry failures are non-fatal.
		s.client.Expire(ctx, k, counterTTL)
	}
	return int(val), nil
}

// Decr subtracts one atomically.
func (s *RedisStore) Decr(ctx context.Context, key Key) error {
	if err := s.client.Decr(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("usage rollback failed: %w", err)
	}
	return nil
}
