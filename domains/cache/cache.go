package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is the envelope persisted by every Store.
// The expiry travels with the value so a backend that keeps a key slightly longer
// than requested can never serve it past ExpiresAt.
type Entry struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Expired reports whether the entry is no longer valid at now. Expiry is inclusive.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store is a cache backend. Get returns nil, nil for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
	Name() string
}

type CacheStats struct {
	Backend      string  `json:"backend"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	Entries      int     `json:"entries"`
	HumanEntries string  `json:"human_entries"`
	HitRate      float64 `json:"hit_rate"`
}

// ICacheUsecase is the best-effort TTL cache used by every provider-calling code path.
// None of its methods fail: backend errors degrade to a miss or a no-op.
type ICacheUsecase interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool)
	Set(ctx context.Context, key string, value any, ttlMinutes int)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
	GetStats(ctx context.Context) CacheStats
}
