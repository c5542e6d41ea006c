package port

import (
	"context"
	"time"
)

// RateLimitStore tracks request attempts per key inside a sliding window.
// The memory implementation serves a single instance; the redis one shares
// counters across replicas.
type RateLimitStore interface {
	// TrimWindow drops attempts older than windowStart for the key.
	TrimWindow(ctx context.Context, key string, windowStart time.Time) error
	// CountAttempts returns the number of attempts recorded since windowStart.
	CountAttempts(ctx context.Context, key string, windowStart time.Time) (int, error)
	// RecordAttempt stores one attempt at the given instant.
	RecordAttempt(ctx context.Context, key string, at time.Time, ttl time.Duration) error
	// OldestAttempt returns the earliest attempt still inside the window,
	// used to compute Retry-After. ok is false when the window is empty.
	OldestAttempt(ctx context.Context, key string, windowStart time.Time) (time.Time, bool, error)
}
