package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AzielCF/az-prospect/domains/routing"
	"github.com/AzielCF/az-prospect/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	outcomes []routing.Outcome
}

func (s *recordingSink) Observe(ctx context.Context, provider routing.Provider, outcome routing.Outcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, outcome)
	s.mu.Unlock()
}

func TestBudget_EnforcedAndResetsNextDay(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := testSettings()
	s.Budgets[routing.ProviderApollo] = 3
	tracker := NewUsageTracker(repository.NewMemoryUsageStore(), s, time.UTC, clock.Now)

	for i := 0; i < 3; i++ {
		assert.True(t, tracker.IsUnderBudget(ctx, routing.ProviderApollo))
		tracker.RecordUsage(ctx, routing.ProviderApollo, i%2 == 0)
	}
	assert.False(t, tracker.IsUnderBudget(ctx, routing.ProviderApollo))

	clock.Advance(24 * time.Hour)
	assert.True(t, tracker.IsUnderBudget(ctx, routing.ProviderApollo))
	assert.Zero(t, tracker.Usage(ctx, routing.ProviderApollo).Count)
}

func TestBudget_UnlimitedAndDefault(t *testing.T) {
	ctx := context.Background()
	tracker := NewUsageTracker(nil, testSettings(), time.UTC, newFakeClock().Now)

	for i := 0; i < 200; i++ {
		tracker.RecordUsage(ctx, routing.ProviderHubSpot, true)
	}
	assert.True(t, tracker.IsUnderBudget(ctx, routing.ProviderHubSpot))
	u := tracker.Usage(ctx, routing.ProviderHubSpot)
	assert.True(t, u.Unlimited)
	assert.Equal(t, int64(200), u.Count)

	s := testSettings()
	delete(s.Budgets, routing.ProviderClearout)
	tracker = NewUsageTracker(nil, s, time.UTC, newFakeClock().Now)
	for i := 0; i < 100; i++ {
		tracker.RecordUsage(ctx, routing.ProviderClearout, true)
	}
	assert.False(t, tracker.IsUnderBudget(ctx, routing.ProviderClearout))
}

func TestBudget_SurvivesRestartThroughStore(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := repository.NewMemoryUsageStore()

	first := NewUsageTracker(store, testSettings(), time.UTC, clock.Now)
	for i := 0; i < 4; i++ {
		first.RecordUsage(ctx, routing.ProviderSerper, true)
	}

	restarted := NewUsageTracker(store, testSettings(), time.UTC, clock.Now)
	assert.Equal(t, int64(4), restarted.Usage(ctx, routing.ProviderSerper).Count)
	restarted.RecordUsage(ctx, routing.ProviderSerper, false)
	assert.Equal(t, int64(5), restarted.Usage(ctx, routing.ProviderSerper).Count)
}

func TestBudget_SharedStoreCountsOtherProcesses(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := repository.NewMemoryUsageStore()
	a := NewUsageTracker(store, testSettings(), time.UTC, clock.Now)
	b := NewUsageTracker(store, testSettings(), time.UTC, clock.Now)

	a.RecordUsage(ctx, routing.ProviderExa, true)
	b.RecordUsage(ctx, routing.ProviderExa, true)
	a.RecordUsage(ctx, routing.ProviderExa, true)

	assert.Equal(t, int64(3), a.Usage(ctx, routing.ProviderExa).Count)
}

type brokenUsageStore struct{}

func (brokenUsageStore) Get(context.Context, routing.Provider, string) (int64, error) {
	return 0, errors.New("db down")
}
func (brokenUsageStore) Increment(context.Context, routing.Provider, string) (int64, error) {
	return 0, errors.New("db down")
}

func TestBudget_PersistenceErrorKeepsCountingAndForwarding(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	tracker := NewUsageTracker(brokenUsageStore{}, testSettings(), time.UTC, newFakeClock().Now, sink)

	tracker.RecordUsage(ctx, routing.ProviderParallel, false)
	tracker.RecordOutcome(ctx, routing.ProviderParallel, routing.Outcome{Success: true, Latency: time.Second})

	assert.Equal(t, int64(2), tracker.Usage(ctx, routing.ProviderParallel).Count)
	require.Len(t, sink.outcomes, 2)
	assert.False(t, sink.outcomes[0].Success)
	assert.Equal(t, time.Second, sink.outcomes[1].Latency)
}

func TestBudget_ConcurrentIncrementsAreNotLost(t *testing.T) {
	ctx := context.Background()
	tracker := NewUsageTracker(repository.NewMemoryUsageStore(), testSettings(), time.UTC, newFakeClock().Now)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.RecordUsage(ctx, routing.ProviderExa, true)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), tracker.Usage(ctx, routing.ProviderExa).Count)
}

func TestBudget_DayBoundaryFollowsLocation(t *testing.T) {
	ctx := context.Background()
	lima, err := time.LoadLocation("America/Lima")
	require.NoError(t, err)

	// 23:30 in Lima is already the next UTC day
	clock := &fakeClock{now: time.Date(2026, 3, 11, 4, 30, 0, 0, time.UTC)}
	s := testSettings()
	s.Budgets[routing.ProviderApollo] = 1
	tracker := NewUsageTracker(nil, s, lima, clock.Now)

	tracker.RecordUsage(ctx, routing.ProviderApollo, true)
	assert.False(t, tracker.IsUnderBudget(ctx, routing.ProviderApollo))

	clock.Advance(29 * time.Minute)
	assert.False(t, tracker.IsUnderBudget(ctx, routing.ProviderApollo))
	clock.Advance(time.Minute)
	assert.True(t, tracker.IsUnderBudget(ctx, routing.ProviderApollo))
}

func TestBudget_Summary(t *testing.T) {
	ctx := context.Background()
	tracker := NewUsageTracker(nil, testSettings(), time.UTC, newFakeClock().Now)
	tracker.RecordUsage(ctx, routing.ProviderExa, true)

	sum := tracker.GetUsageSummary(ctx)
	require.Len(t, sum, len(routing.AllProviders))
	assert.Equal(t, routing.UsageSummaryEntry{Count: 1, Limit: 1000, Remaining: 999}, sum[routing.ProviderExa])
	assert.True(t, sum[routing.ProviderFreshsales].Unlimited)
}

func TestBudget_CanceledOutcomeCountsBudgetOnly(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	circuit := NewCircuitBreaker(testSettings(), clock.Now)
	health := NewHealthMonitor(repository.NewMemoryHealthLog(), HealthConfig{}, clock.Now)
	sink := &recordingSink{}
	tracker := NewUsageTracker(repository.NewMemoryUsageStore(), testSettings(), time.UTC, clock.Now, circuit, health, sink)

	for i := 0; i < 5; i++ {
		tracker.RecordOutcome(ctx, routing.ProviderApollo, routing.Outcome{Canceled: true, Err: context.Canceled})
	}

	assert.Equal(t, int64(5), tracker.Usage(ctx, routing.ProviderApollo).Count)
	assert.False(t, circuit.IsCircuitOpen(routing.ProviderApollo))
	assert.Zero(t, circuit.State(routing.ProviderApollo).ConsecutiveFailures)

	sum := health.GetHealthSummary(ctx)
	assert.Zero(t, sum.Sources[routing.ProviderApollo].SampleCount)
	assert.Empty(t, sum.RecentErrors)

	require.Len(t, sink.outcomes, 5)
	assert.True(t, sink.outcomes[0].Canceled)
}
