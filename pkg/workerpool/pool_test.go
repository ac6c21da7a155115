package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_DispatchNonBlocking(t *testing.T) {
	pool := New("test", 2, 10)
	pool.Start(context.Background())
	defer pool.Stop()

	start := time.Now()
	ok := pool.TryDispatch(Job{
		Key: "exa",
		Handler: func(ctx context.Context) error {
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	})
	require.True(t, ok)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestPool_SameKeyRunsInOrder(t *testing.T) {
	pool := New("test", 4, 100)
	pool.Start(context.Background())

	var (
		mu      sync.Mutex
		results []int
	)
	for i := 1; i <= 5; i++ {
		val := i
		require.True(t, pool.TryDispatch(Job{
			Key: "serper",
			Handler: func(ctx context.Context) error {
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				results = append(results, val)
				mu.Unlock()
				return nil
			},
		}))
	}

	pool.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3, 4, 5}, results)
}

func TestPool_StopRunsQueuedJobs(t *testing.T) {
	pool := New("test", 2, 10)
	pool.Start(context.Background())

	var completed atomic.Int32
	for i := 0; i < 6; i++ {
		require.True(t, pool.TryDispatch(Job{
			Key: fmt.Sprintf("k%d", i),
			Handler: func(ctx context.Context) error {
				time.Sleep(10 * time.Millisecond)
				completed.Add(1)
				return nil
			},
		}))
	}

	pool.Stop()
	assert.Equal(t, int32(6), completed.Load())

	stats := pool.Stats()
	assert.Equal(t, int64(6), stats.TotalDispatched)
	assert.Equal(t, int64(6), stats.TotalProcessed)
	assert.Zero(t, stats.QueueDepth)
}

func TestPool_DropsWhenQueueFullOrStopped(t *testing.T) {
	pool := New("test", 1, 1)

	assert.False(t, pool.TryDispatch(Job{Key: "a", Handler: func(context.Context) error { return nil }}), "not started")

	pool.Start(context.Background())
	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, pool.TryDispatch(Job{Key: "a", Handler: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))
	<-started

	require.True(t, pool.TryDispatch(Job{Key: "a", Handler: func(context.Context) error { return nil }}))
	assert.False(t, pool.TryDispatch(Job{Key: "a", Handler: func(context.Context) error { return nil }}), "queue full")

	close(release)
	pool.Stop()
	assert.False(t, pool.TryDispatch(Job{Key: "a", Handler: func(context.Context) error { return nil }}), "stopped")
	assert.Equal(t, int64(3), pool.Stats().TotalDropped)
}

func TestPool_CountsErrorsAndPanics(t *testing.T) {
	pool := New("test", 1, 10)
	pool.Start(context.Background())

	pool.TryDispatch(Job{Key: "a", Handler: func(context.Context) error { return errors.New("boom") }})
	pool.TryDispatch(Job{Key: "a", Handler: func(context.Context) error { panic("bad") }})
	pool.TryDispatch(Job{Key: "a", Handler: func(context.Context) error { return nil }})
	pool.Stop()

	stats := pool.Stats()
	assert.Equal(t, int64(2), stats.TotalErrors)
	assert.Equal(t, int64(3), stats.TotalProcessed)
}

func TestPool_ConsistentSharding(t *testing.T) {
	pool := New("test", 4, 10)

	shard := pool.shardFor("parallel")
	assert.Equal(t, shard, pool.shardFor("parallel"))
	assert.GreaterOrEqual(t, shard, 0)
	assert.Less(t, shard, 4)

	counts := make(map[int]int)
	for i := 0; i < 100; i++ {
		counts[pool.shardFor(fmt.Sprintf("key-%d", i))]++
	}
	for s, n := range counts {
		assert.Greater(t, n, 10, "shard %d", s)
		assert.Less(t, n, 40, "shard %d", s)
	}
}
