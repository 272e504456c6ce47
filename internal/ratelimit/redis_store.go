package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const redisKeyPrefix = "ratelimit:"

// RedisStore keeps admission events in per-key sorted sets scored by
// event time. Stale members are pruned on every read, so the set is a
// sliding window that never grows past the budget horizon. Externally
// equivalent to the row store.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed rate limit store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(identity, category string) string {
	return redisKeyPrefix + category + ":" + identity
}

// CountSince counts events for (identity, category) at or after cutoff
func (s *RedisStore) CountSince(ctx context.Context, identity, category string, cutoff time.Time) (int64, error) {
	key := redisKey(identity, category)
	minScore := fmt.Sprintf("(%d", cutoff.UnixMicro())

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", minScore)
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to count rate limit events: %w", err)
	}
	return card.Val(), nil
}

// Record appends one event and refreshes the key's expiry past the window
func (s *RedisStore) Record(ctx context.Context, identity, category string, now time.Time, window time.Duration) error {
	key := redisKey(identity, category)
	member := uuid.NewString()

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.UnixMicro()),
		Member: member,
	})
	// Keep the key a bit past the window so late reads still see it.
	pipe.Expire(ctx, key, window+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record rate limit event: %w", err)
	}
	return nil
}
