package memory

import (
	"context"
	"sync"
	"time"

	"github.com/arazshah/callyou/internal/core/port"
)

// RateLimitStore tracks attempts per key in process memory behind a mutex.
// It serves single-instance deployments and tests; multi-instance setups use
// the Redis store so replicas share one window.
type RateLimitStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewRateLimitStore constructs an empty in-memory store.
func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{attempts: make(map[string][]time.Time)}
}

// TrimWindow drops attempts older than windowStart for the key.
func (s *RateLimitStore) TrimWindow(_ context.Context, key string, windowStart time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.attempts[key]
	kept := entries[:0]
	for _, at := range entries {
		if !at.Before(windowStart) {
			kept = append(kept, at)
		}
	}

	if len(kept) == 0 {
		delete(s.attempts, key)
		return nil
	}

	s.attempts[key] = kept
	return nil
}

// CountAttempts returns the number of attempts recorded since windowStart.
func (s *RateLimitStore) CountAttempts(_ context.Context, key string, windowStart time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, at := range s.attempts[key] {
		if !at.Before(windowStart) {
			count++
		}
	}
	return count, nil
}

// RecordAttempt stores one attempt at the given instant. TTL is ignored;
// TrimWindow handles expiry.
func (s *RateLimitStore) RecordAttempt(_ context.Context, key string, at time.Time, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts[key] = append(s.attempts[key], at)
	return nil
}

// OldestAttempt returns the earliest attempt still inside the window.
func (s *RateLimitStore) OldestAttempt(_ context.Context, key string, windowStart time.Time) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		oldest time.Time
		found  bool
	)
	for _, at := range s.attempts[key] {
		if at.Before(windowStart) {
			continue
		}
		if !found || at.Before(oldest) {
			oldest = at
			found = true
		}
	}
	return oldest, found, nil
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
