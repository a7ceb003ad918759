package usage

import (
	"context"
	"sync"
)

// MemoryStore keeps counts in process memory. Counts are lost on exit.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]int)}
}

// GetCount returns the count for day.
func (s *MemoryStore) GetCount(ctx context.Context, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counts[day], nil
}

// Increment adds one to day's count.
func (s *MemoryStore) Increment(ctx context.Context, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[day]++

	return s.counts[day], nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
