package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	domainCache "github.com/AzielCF/az-prospect/domains/cache"
	"github.com/AzielCF/az-prospect/pkg/metrics"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type cacheService struct {
	store domainCache.Store
	now   func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

func NewCacheService(store domainCache.Store) domainCache.ICacheUsecase {
	return NewCacheServiceWithClock(store, nil)
}

// NewCacheServiceWithClock is NewCacheService with an injected clock. A nil clock means time.Now.
func NewCacheServiceWithClock(store domainCache.Store, now func() time.Time) domainCache.ICacheUsecase {
	if now == nil {
		now = time.Now
	}
	return &cacheService{store: store, now: now}
}

func (s *cacheService) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	entry, err := s.store.Get(ctx, key)
	if err != nil {
		logrus.WithError(err).Warnf("[CACHE] Get %s failed, treating as miss", key)
		metrics.RecordCacheError(s.store.Name(), "get")
		return s.miss()
	}
	if entry == nil {
		return s.miss()
	}
	// expired entries are left to the store's own TTL or eviction; deleting here could drop a
	// value written by a concurrent Set
	if entry.Expired(s.now()) {
		return s.miss()
	}

	s.hits.Add(1)
	metrics.RecordCacheHit(s.store.Name())
	return entry.Value, true
}

func (s *cacheService) miss() (json.RawMessage, bool) {
	s.misses.Add(1)
	metrics.RecordCacheMiss(s.store.Name())
	return nil, false
}

// Set stores value for ttlMinutes whole minutes. A non-positive ttl stores nothing.
func (s *cacheService) Set(ctx context.Context, key string, value any, ttlMinutes int) {
	if ttlMinutes <= 0 {
		logrus.Debugf("[CACHE] Skipping %s: ttl %d minutes", key, ttlMinutes)
		return
	}

	raw, err := encodeValue(value)
	if err != nil {
		logrus.WithError(err).Warnf("[CACHE] Cannot encode value for %s", key)
		return
	}

	ttl := time.Duration(ttlMinutes) * time.Minute
	entry := domainCache.Entry{Value: raw, ExpiresAt: s.now().Add(ttl)}
	if err := s.store.Set(ctx, key, entry, ttl); err != nil {
		logrus.WithError(err).Warnf("[CACHE] Set %s failed", key)
		metrics.RecordCacheError(s.store.Name(), "set")
	}
}

func (s *cacheService) Delete(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		logrus.WithError(err).Warnf("[CACHE] Delete %s failed", key)
		metrics.RecordCacheError(s.store.Name(), "delete")
	}
}

func (s *cacheService) Clear(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		logrus.WithError(err).Warn("[CACHE] Clear failed")
		metrics.RecordCacheError(s.store.Name(), "clear")
		return
	}
	logrus.Info("[CACHE] Cleared")
}

func (s *cacheService) GetStats(ctx context.Context) domainCache.CacheStats {
	stats := domainCache.CacheStats{
		Backend: s.store.Name(),
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
	}
	if n, err := s.store.Len(ctx); err != nil {
		logrus.WithError(err).Warn("[CACHE] Failed to count entries")
	} else {
		stats.Entries = n
	}
	stats.HumanEntries = humanize.Comma(int64(stats.Entries))
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

func encodeValue(value any) (json.RawMessage, error) {
	switch v := value.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("invalid raw json")
		}
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// GetCached reads key and decodes it into T. A value that no longer decodes counts as a miss.
func GetCached[T any](ctx context.Context, c domainCache.ICacheUsecase, key string) (T, bool) {
	var out T
	raw, ok := c.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		logrus.WithError(err).Warnf("[CACHE] Cannot decode %s, ignoring entry", key)
		var zero T
		return zero, false
	}
	return out, true
}

func SetCached[T any](ctx context.Context, c domainCache.ICacheUsecase, key string, value T, ttlMinutes int) {
	c.Set(ctx, key, value, ttlMinutes)
}

func DeleteCached(ctx context.Context, c domainCache.ICacheUsecase, key string) {
	c.Delete(ctx, key)
}

func ClearCache(ctx context.Context, c domainCache.ICacheUsecase) {
	c.Clear(ctx)
}

// SharedCallTimeout bounds a collapsed load. The load is detached from the caller that started
// it, so it keeps running for the other waiters when that caller goes away.
const SharedCallTimeout = 30 * time.Second

// ErrSharedCallTimeout is the context cause of a collapsed call that ran past SharedCallTimeout.
var ErrSharedCallTimeout = errors.New("shared call timed out")

// loadGroup collapses concurrent loads of the same cache key.
var loadGroup singleflight.Group

// doShared runs fn once per key for all concurrent callers. fn gets a context that keeps ctx's
// values but not its cancellation; each caller stops waiting when its own ctx is done.
func doShared(ctx context.Context, group *singleflight.Group, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := group.DoChan(key, func() (v any, err error) {
		// DoChan re-panics on its own goroutine, which would take the process down
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("shared call %s panicked: %v", key, r)
			}
		}()
		callCtx, cancel := context.WithTimeoutCause(context.WithoutCancel(ctx), SharedCallTimeout, ErrSharedCallTimeout)
		defer cancel()
		return fn(callCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetOrLoad returns the cached value for key, or runs load once for all concurrent callers
// and caches a successful result for ttlMinutes. Errors are returned and never cached.
// A caller whose ctx ends returns ctx.Err() without failing the other waiters.
func GetOrLoad[T any](ctx context.Context, c domainCache.ICacheUsecase, key string, ttlMinutes int, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := GetCached[T](ctx, c, key); ok {
		return v, nil
	}

	res, err := doShared(ctx, &loadGroup, fmt.Sprintf("%p|%s", c, key), func(ctx context.Context) (any, error) {
		if v, ok := GetCached[T](ctx, c, key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, v, ttlMinutes)
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}
