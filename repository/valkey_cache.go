package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"

	"github.com/AzielCF/az-prospect/domains/cache"
	"github.com/AzielCF/az-prospect/infrastructure/valkey"
)

// ValkeyCacheStore implements cache.Store using Valkey. Keys expire natively after ttl;
// the envelope still carries ExpiresAt so the reader's inclusive expiry check applies.
type ValkeyCacheStore struct {
	client *valkey.Client
	prefix string
}

func NewValkeyCacheStore(client *valkey.Client) *ValkeyCacheStore {
	return &ValkeyCacheStore{
		client: client,
		prefix: client.Key("cache") + ":",
	}
}

func (s *ValkeyCacheStore) fullKey(key string) string {
	return s.prefix + key
}

func (s *ValkeyCacheStore) inner() valkeylib.Client {
	return s.client.Inner()
}

func (s *ValkeyCacheStore) Name() string {
	return "valkey"
}

func (s *ValkeyCacheStore) Get(ctx context.Context, key string) (*cache.Entry, error) {
	cmd := s.inner().B().Get().Key(s.fullKey(key)).Build()

	data, err := s.inner().Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var entry cache.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return &entry, nil
}

func (s *ValkeyCacheStore) Set(ctx context.Context, key string, entry cache.Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if ttl < time.Second {
		ttl = time.Second
	}

	cmd := s.inner().B().Set().
		Key(s.fullKey(key)).
		Value(string(data)).
		Ex(ttl).
		Build()

	if err := s.inner().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

func (s *ValkeyCacheStore) Delete(ctx context.Context, key string) error {
	cmd := s.inner().B().Del().Key(s.fullKey(key)).Build()
	if err := s.inner().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (s *ValkeyCacheStore) Clear(ctx context.Context) error {
	if _, err := s.client.DeletePrefix(ctx, s.prefix); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func (s *ValkeyCacheStore) Len(ctx context.Context) (int, error) {
	keys, err := s.client.ScanPrefix(ctx, s.prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return len(keys), nil
}
