package quota

import (
	"context"
	"sync"
)

// Key identifies one usage counter: a user on a UTC calendar day.
type Key struct {
	UserID string
	Day    string // YYYY-MM-DD, UTC
}

// Store is the injected usage persistence capability. A missing counter
// reads as zero; the core never owns storage. Incr must be atomic.
type Store interface {
	// Get returns the current count for a key (0 if absent).
	Get(ctx context.Context, key Key) (int, error)

	// Incr adds one to the counter and returns the new value.
	Incr(ctx context.Context, key Key) (int, error)

	// Decr subtracts one, flooring at zero. Used to roll back a reserve
	// that overshot the limit.
	Decr(ctx context.Context, key Key) error
}

// MemoryStore keeps counters in process memory. Suitable for tests and
// single-process CLI runs; production deployments inject RedisStore.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[Key]int
}

// NewMemoryStore creates an empty in-memory usage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[Key]int)}
}

// Get returns the counter value for a key.
func (s *MemoryStore) Get(ctx context.Context, key Key) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key], nil
}

// Incr adds one and returns the new value.
func (s *MemoryStore) Incr(ctx context.Context, key Key) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return s.counts[key], nil
}

// Decr subtracts one, flooring at zero.
func (s *MemoryStore) Decr(ctx context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts[key] > 0 {
		s.counts[key]--
	}
	return nil
}
