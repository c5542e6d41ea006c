package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arazshah/callyou/internal/core/port"
)

// RateLimitStore persists rate-limit attempts in Redis sorted sets keyed by
// client identifier. Scores are attempt timestamps in nanoseconds, so every
// replica sharing the Redis instance sees the same window.
type RateLimitStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRateLimitStore constructs a store using the provided Redis client.
func NewRateLimitStore(client *redis.Client, keyPrefix string) *RateLimitStore {
	return &RateLimitStore{client: client, keyPrefix: keyPrefix}
}

// TrimWindow removes attempts older than windowStart.
func (r *RateLimitStore) TrimWindow(ctx context.Context, key string, windowStart time.Time) error {
	threshold := fmt.Sprintf("(%d", windowStart.UnixNano())
	if err := r.client.ZRemRangeByScore(ctx, r.key(key), "-inf", threshold).Err(); err != nil {
		return fmt.Errorf("redis zremrangebyscore: %w", err)
	}
	return nil
}

// CountAttempts returns how many attempts occurred since windowStart.
func (r *RateLimitStore) CountAttempts(ctx context.Context, key string, windowStart time.Time) (int, error) {
	min := strconv.FormatInt(windowStart.UnixNano(), 10)
	count, err := r.client.ZCount(ctx, r.key(key), min, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}
	return int(count), nil
}

// RecordAttempt stores the provided timestamp and refreshes the key TTL so
// idle keys expire on their own.
func (r *RateLimitStore) RecordAttempt(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	fullKey := r.key(key)
	member := redis.Z{Score: float64(at.UnixNano()), Member: at.UnixNano()}

	if err := r.client.ZAdd(ctx, fullKey, member).Err(); err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}

	if ttl > 0 {
		if err := r.client.Expire(ctx, fullKey, ttl).Err(); err != nil {
			return fmt.Errorf("redis expire: %w", err)
		}
	}

	return nil
}

// OldestAttempt returns the earliest attempt still inside the window.
func (r *RateLimitStore) OldestAttempt(ctx context.Context, key string, windowStart time.Time) (time.Time, bool, error) {
	values, err := r.client.ZRangeByScore(ctx, r.key(key), &redis.ZRangeBy{
		Min:    strconv.FormatInt(windowStart.UnixNano(), 10),
		Max:    "+inf",
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis zrangebyscore: %w", err)
	}

	if len(values) == 0 {
		return time.Time{}, false, nil
	}

	ts, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse timestamp: %w", err)
	}

	return time.Unix(0, ts), true, nil
}

func (r *RateLimitStore) key(identifier string) string {
	if r.keyPrefix == "" {
		return identifier
	}
	return fmt.Sprintf("%s:%s", r.keyPrefix, identifier)
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
