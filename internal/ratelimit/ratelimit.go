// Package ratelimit throttles credential endpoints per client IP with a
// sliding window held in memory.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result reports one Allow decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long the caller should wait before trying again.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed || !r.ResetAt.After(now) {
		return 0
	}
	return r.ResetAt.Sub(now)
}

// InMemoryBucketStore keeps request timestamps per key. Not shared across
// processes.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

// Option configures the store.
type Option func(*InMemoryBucketStore)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryBucketStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewInMemoryBucketStore creates an empty store.
func NewInMemoryBucketStore(opts ...Option) *InMemoryBucketStore {
	s := &InMemoryBucketStore{
		buckets: make(map[string]*slidingWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow records one request for key if fewer than limit fall inside window.
func (s *InMemoryBucketStore) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sw := s.bucket(key, window)
	sw.cleanup(now)

	if len(sw.timestamps) >= limit {
		return Result{
			Allowed: false,
			Limit:   limit,
			ResetAt: sw.timestamps[0].Add(window),
		}, nil
	}
	sw.timestamps = append(sw.timestamps, now)
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(sw.timestamps),
		ResetAt:   sw.timestamps[0].Add(window),
	}, nil
}

// Sweep drops buckets with no timestamps left in their window.
func (s *InMemoryBucketStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, sw := range s.buckets {
		sw.cleanup(now)
		if len(sw.timestamps) == 0 {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

func (sw *slidingWindow) cleanup(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// bucket must be called with s.mu held.
func (s *InMemoryBucketStore) bucket(key string, window time.Duration) *slidingWindow {
	if sw := s.buckets[key]; sw != nil {
		sw.window = window
		return sw
	}
	sw := &slidingWindow{window: window}
	s.buckets[key] = sw
	return sw
}
