package repository

import (
	"context"
	"sync"

	"github.com/AzielCF/az-prospect/domains/routing"
)

// MemoryUsageStore implements routing.UsageStore in process. Counts do not survive a restart.
type MemoryUsageStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemoryUsageStore() *MemoryUsageStore {
	return &MemoryUsageStore{counts: make(map[string]int64)}
}

func usageKey(provider routing.Provider, day string) string {
	return string(provider) + ":" + day
}

func (s *MemoryUsageStore) Get(ctx context.Context, provider routing.Provider, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[usageKey(provider, day)], nil
}

func (s *MemoryUsageStore) Increment(ctx context.Context, provider routing.Provider, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := usageKey(provider, day)
	s.counts[k]++
	return s.counts[k], nil
}
