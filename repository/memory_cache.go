package repository

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/AzielCF/az-prospect/domains/cache"
)

// DefaultMemoryCacheEntries bounds the in-memory cache when no size is configured.
const DefaultMemoryCacheEntries = 10000

// MemoryCacheStore implements cache.Store with a bounded LRU.
// Entries are kept until evicted or deleted; expiry is enforced by the reader via Entry.ExpiresAt.
type MemoryCacheStore struct {
	entries *lru.Cache
}

// NewMemoryCacheStore creates a store holding at most maxEntries keys.
func NewMemoryCacheStore(maxEntries int) (*MemoryCacheStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryCacheEntries
	}
	entries, err := lru.New(maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &MemoryCacheStore{entries: entries}, nil
}

func (s *MemoryCacheStore) Name() string {
	return "memory"
}

func (s *MemoryCacheStore) Get(ctx context.Context, key string) (*cache.Entry, error) {
	v, ok := s.entries.Get(key)
	if !ok {
		return nil, nil
	}
	entry := v.(cache.Entry)
	return &entry, nil
}

func (s *MemoryCacheStore) Set(ctx context.Context, key string, entry cache.Entry, ttl time.Duration) error {
	s.entries.Add(key, entry)
	return nil
}

func (s *MemoryCacheStore) Delete(ctx context.Context, key string) error {
	s.entries.Remove(key)
	return nil
}

func (s *MemoryCacheStore) Clear(ctx context.Context) error {
	s.entries.Purge()
	return nil
}

func (s *MemoryCacheStore) Len(ctx context.Context) (int, error) {
	return s.entries.Len(), nil
}
