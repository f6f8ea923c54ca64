package ratelimit

import (
	"sync"
	"time"
)

// CounterStore is the injected backend for windowed counters. Implementations
// must make Increment atomic: two concurrent requests for the same key must
// never observe the same count.
type CounterStore interface {
	// Increment adds one to the bucket for key, opening a fresh window of the
	// given length if none is active. It returns the new count and how long
	// until the active window resets.
	Increment(key string, window time.Duration) (count int, reset time.Duration, err error)
}

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryStore is the default in-process CounterStore. Counters do not survive
// a restart; abuse mitigation fails open, which is the accepted trade-off.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemoryStore creates an empty in-process counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucket)}
}

// Increment implements CounterStore. The whole read-modify-write runs under
// one lock so concurrent requests never lose updates. A request arriving at
// or after the window's reset time starts a fresh window and succeeds.
func (s *MemoryStore) Increment(key string, window time.Duration) (int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	b, ok := s.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(window)}
		s.buckets[key] = b
	}

	b.count++

	return b.count, b.resetAt.Sub(now), nil
}
