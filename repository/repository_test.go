package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AzielCF/az-prospect/domains/cache"
	"github.com/AzielCF/az-prospect/domains/routing"
	"github.com/AzielCF/az-prospect/infrastructure/valkey"
	"github.com/AzielCF/az-prospect/pkg/workerpool"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestValkey(t *testing.T) *valkey.Client {
	t.Helper()
	c, err := valkey.NewClient(valkey.Config{
		Address:        "localhost:6379",
		KeyPrefix:      "prospect_test_" + t.Name(),
		ConnectTimeout: 500 * time.Millisecond,
	})
	if err != nil {
		t.Skipf("valkey not available: %v", err)
	}
	t.Cleanup(func() {
		_, _ = c.DeletePrefix(context.Background(), c.Key(""))
		c.Close()
	})
	return c
}

func TestMemoryCacheStore_LRUBound(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryCacheStore(2)
	require.NoError(t, err)

	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.Set(ctx, "a", cache.Entry{Value: []byte(`1`), ExpiresAt: exp}, time.Hour))
	require.NoError(t, s.Set(ctx, "b", cache.Entry{Value: []byte(`2`), ExpiresAt: exp}, time.Hour))
	_, _ = s.Get(ctx, "a")
	require.NoError(t, s.Set(ctx, "c", cache.Entry{Value: []byte(`3`), ExpiresAt: exp}, time.Hour))

	evicted, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, evicted)

	kept, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.JSONEq(t, `1`, string(kept.Value))

	n, _ := s.Len(ctx)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Delete(ctx, "missing"))
	require.NoError(t, s.Clear(ctx))
	n, _ = s.Len(ctx)
	assert.Zero(t, n)
}

func TestValkeyCacheStore(t *testing.T) {
	ctx := context.Background()
	s := NewValkeyCacheStore(newTestValkey(t))

	entry := cache.Entry{Value: []byte(`{"domain":"acme.com"}`), ExpiresAt: time.Now().Add(time.Minute).UTC()}
	require.NoError(t, s.Set(ctx, "company:acme.com", entry, time.Minute))

	got, err := s.Get(ctx, "company:acme.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, string(entry.Value), string(got.Value))
	assert.True(t, entry.ExpiresAt.Equal(got.ExpiresAt))

	missing, err := s.Get(ctx, "company:nope.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Clear(ctx))
	got, err = s.Get(ctx, "company:acme.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGormUsageStore_GetOrCreateAndIncrement(t *testing.T) {
	ctx := context.Background()
	store := NewGormUsageStore(newTestDB(t))
	require.NoError(t, store.InitSchema(ctx))

	n, err := store.Get(ctx, routing.ProviderExa, "2026-03-01")
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 1; i <= 3; i++ {
		n, err = store.Increment(ctx, routing.ProviderExa, "2026-03-01")
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
	}

	n, err = store.Increment(ctx, routing.ProviderExa, "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.Get(ctx, routing.ProviderExa, "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	history, err := store.History(ctx, routing.ProviderExa, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2026-03-02", history[0].Day)
}

func TestGormUsageStore_ConcurrentIncrementsAreNotLost(t *testing.T) {
	ctx := context.Background()
	store := NewGormUsageStore(newTestDB(t))
	require.NoError(t, store.InitSchema(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Increment(ctx, routing.ProviderSerper, "2026-03-01")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := store.Get(ctx, routing.ProviderSerper, "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, int64(20), n)
}

func TestMemoryUsageStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUsageStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Increment(ctx, routing.ProviderApollo, "2026-03-01")
		}()
	}
	wg.Wait()

	n, _ := store.Get(ctx, routing.ProviderApollo, "2026-03-01")
	assert.Equal(t, int64(50), n)
	n, _ = store.Get(ctx, routing.ProviderApollo, "2026-03-02")
	assert.Zero(t, n)
}

func TestValkeyUsageStore(t *testing.T) {
	ctx := context.Background()
	store := NewValkeyUsageStore(newTestValkey(t))

	n, err := store.Get(ctx, routing.ProviderExa, "2026-03-01")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.Increment(ctx, routing.ProviderExa, "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = store.Increment(ctx, routing.ProviderExa, "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func sampleAt(ts time.Time, ok bool) routing.HealthSample {
	return routing.HealthSample{Timestamp: ts, Success: ok}
}

func TestMemoryHealthLog_EvictsByWindowAndCount(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryHealthLog()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 15 * time.Minute

	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, log.Append(ctx, routing.ProviderExa, sampleAt(ts, true), ts.Add(-window), 3))
	}

	got, err := log.Since(ctx, base.Add(4*time.Minute).Add(-window))
	require.NoError(t, err)
	require.Len(t, got[routing.ProviderExa], 3)
	assert.Equal(t, base.Add(2*time.Minute), got[routing.ProviderExa][0].Timestamp)

	// twenty minutes later everything above has rolled off
	late := base.Add(30 * time.Minute)
	require.NoError(t, log.Append(ctx, routing.ProviderExa, sampleAt(late, false), late.Add(-window), 3))
	got, err = log.Since(ctx, late.Add(-window))
	require.NoError(t, err)
	require.Len(t, got[routing.ProviderExa], 1)
	assert.False(t, got[routing.ProviderExa][0].Success)
}

func TestValkeyHealthLog(t *testing.T) {
	ctx := context.Background()
	log := NewValkeyHealthLog(newTestValkey(t))
	now := time.Now().UTC().Truncate(time.Millisecond)
	window := 15 * time.Minute

	for i := 0; i < 4; i++ {
		ts := now.Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, log.Append(ctx, routing.ProviderSerper, sampleAt(ts, i%2 == 0), ts.Add(-window), 3))
	}
	old := now.Add(-time.Hour)
	require.NoError(t, log.Append(ctx, routing.ProviderApollo, sampleAt(old, true), now.Add(-window), 3))

	got, err := log.Since(ctx, now.Add(-window))
	require.NoError(t, err)
	assert.Len(t, got[routing.ProviderSerper], 3)
	assert.Empty(t, got[routing.ProviderApollo])
}

func TestAsyncHealthLog_WritesInOrderAndDrainsOnStop(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	pool := workerpool.New("health-test", 2, 50)
	pool.Start(ctx)

	inner := NewMemoryHealthLog()
	log := NewAsyncHealthLog(inner, pool)
	for i := 0; i < 10; i++ {
		require.NoError(t, log.Append(ctx, routing.ProviderExa, sampleAt(base.Add(time.Duration(i)*time.Second), i%2 == 0), base.Add(-time.Hour), 200))
	}
	pool.Stop()

	samples, err := log.Since(ctx, base.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, samples[routing.ProviderExa], 10)
	for i, s := range samples[routing.ProviderExa] {
		assert.Equal(t, base.Add(time.Duration(i)*time.Second), s.Timestamp)
	}
}

func TestAsyncHealthLog_DropsWhenPoolStopped(t *testing.T) {
	pool := workerpool.New("health-test", 1, 1)
	log := NewAsyncHealthLog(NewMemoryHealthLog(), pool)

	err := log.Append(context.Background(), routing.ProviderSerper, sampleAt(time.Now(), true), time.Now().Add(-time.Hour), 10)
	assert.ErrorIs(t, err, ErrSampleDropped)
}
