package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AzielCF/az-prospect/domains/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuit_TripsAfterThreshold(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(testSettings(), clock.Now)

	cb.RecordFailure(routing.ProviderExa)
	cb.RecordFailure(routing.ProviderExa)
	assert.False(t, cb.IsCircuitOpen(routing.ProviderExa))

	cb.RecordFailure(routing.ProviderExa)
	assert.True(t, cb.IsCircuitOpen(routing.ProviderExa))

	st := cb.State(routing.ProviderExa)
	assert.Equal(t, routing.CircuitOpen, st.State)
	assert.Equal(t, 3, st.ConsecutiveFailures)
	require.NotNil(t, st.OpenedAt)
	assert.Equal(t, clock.Now(), *st.OpenedAt)

	cb.RecordSuccess(routing.ProviderExa)
	assert.False(t, cb.IsCircuitOpen(routing.ProviderExa))
	st = cb.State(routing.ProviderExa)
	assert.Equal(t, routing.CircuitClosed, st.State)
	assert.Zero(t, st.ConsecutiveFailures)
	assert.Nil(t, st.OpenedAt)
}

func TestCircuit_SuccessResetsRun(t *testing.T) {
	cb := NewCircuitBreaker(testSettings(), newFakeClock().Now)

	cb.RecordFailure(routing.ProviderSerper)
	cb.RecordFailure(routing.ProviderSerper)
	cb.RecordSuccess(routing.ProviderSerper)
	cb.RecordFailure(routing.ProviderSerper)
	cb.RecordFailure(routing.ProviderSerper)
	assert.False(t, cb.IsCircuitOpen(routing.ProviderSerper))
}

func TestCircuit_HalfOpenAfterCooldown(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(testSettings(), clock.Now)

	for i := 0; i < 3; i++ {
		cb.RecordFailure(routing.ProviderParallel)
	}
	clock.Advance(299 * time.Second)
	assert.True(t, cb.IsCircuitOpen(routing.ProviderParallel))

	// failures inside the window do not re-trip
	cb.RecordFailure(routing.ProviderParallel)
	assert.Equal(t, int64(1), cb.State(routing.ProviderParallel).Trips)

	clock.Advance(time.Second)
	assert.False(t, cb.IsCircuitOpen(routing.ProviderParallel))
	assert.Equal(t, routing.CircuitHalfOpen, cb.State(routing.ProviderParallel).State)

	// failed trial re-opens with a fresh openedAt
	cb.RecordFailure(routing.ProviderParallel)
	assert.True(t, cb.IsCircuitOpen(routing.ProviderParallel))
	st := cb.State(routing.ProviderParallel)
	assert.Equal(t, int64(2), st.Trips)
	assert.Equal(t, clock.Now(), *st.OpenedAt)

	clock.Advance(300 * time.Second)
	cb.RecordSuccess(routing.ProviderParallel)
	assert.Equal(t, routing.CircuitClosed, cb.State(routing.ProviderParallel).State)
}

func TestCircuit_ResetAlwaysCloses(t *testing.T) {
	cb := NewCircuitBreaker(testSettings(), newFakeClock().Now)

	cb.ResetCircuit(routing.ProviderApollo)
	assert.False(t, cb.IsCircuitOpen(routing.ProviderApollo))

	for i := 0; i < 10; i++ {
		cb.RecordFailure(routing.ProviderApollo)
	}
	require.True(t, cb.IsCircuitOpen(routing.ProviderApollo))
	cb.ResetCircuit(routing.ProviderApollo)
	assert.False(t, cb.IsCircuitOpen(routing.ProviderApollo))
	assert.Zero(t, cb.State(routing.ProviderApollo).ConsecutiveFailures)
}

func TestCircuit_ProvidersAreIndependent(t *testing.T) {
	cb := NewCircuitBreaker(testSettings(), newFakeClock().Now)
	for i := 0; i < 3; i++ {
		cb.RecordFailure(routing.ProviderClearout)
	}
	assert.True(t, cb.IsCircuitOpen(routing.ProviderClearout))
	assert.False(t, cb.IsCircuitOpen(routing.ProviderHubSpot))
}

func TestCircuit_ThresholdFromSettings(t *testing.T) {
	s := testSettings()
	s.FailureThreshold = 1
	cb := NewCircuitBreaker(s, newFakeClock().Now)
	cb.RecordFailure(routing.ProviderExa)
	assert.True(t, cb.IsCircuitOpen(routing.ProviderExa))
}

func TestCircuit_ConcurrentFailuresTripOnce(t *testing.T) {
	cb := NewCircuitBreaker(testSettings(), newFakeClock().Now)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cb.Observe(context.Background(), routing.ProviderExa, routing.Outcome{Success: false})
		}()
	}
	wg.Wait()

	st := cb.State(routing.ProviderExa)
	assert.Equal(t, 50, st.ConsecutiveFailures)
	assert.Equal(t, int64(1), st.Trips)
}

func TestCircuit_Snapshots(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(testSettings(), clock.Now)
	for i := 0; i < 3; i++ {
		cb.RecordFailure(routing.ProviderSerper)
	}
	clock.Advance(2 * time.Minute)

	snaps := cb.Snapshots()
	require.Len(t, snaps, len(routing.AllProviders))
	for _, s := range snaps {
		assert.Equal(t, 3, s.Threshold)
		assert.Equal(t, 300, s.CooldownSec)
		if s.Provider != routing.ProviderSerper {
			assert.Equal(t, routing.CircuitClosed, s.State)
			continue
		}
		assert.Equal(t, routing.CircuitOpen, s.State)
		assert.Equal(t, "2 minutes ago", s.OpenedAgo)
		require.NotNil(t, s.RetryAfter)
		assert.Equal(t, s.OpenedAt.Add(300*time.Second), *s.RetryAfter)
	}
}

func TestCircuit_HalfOpenAdmitsOneTrial(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(testSettings(), clock.Now)
	ctx := context.Background()

	assert.True(t, cb.AcquireTrial(routing.ProviderSerper), "closed circuit always admits")

	for i := 0; i < 3; i++ {
		cb.RecordFailure(routing.ProviderSerper)
	}
	assert.False(t, cb.AcquireTrial(routing.ProviderSerper))

	clock.Advance(300 * time.Second)
	require.True(t, cb.AcquireTrial(routing.ProviderSerper))
	assert.False(t, cb.AcquireTrial(routing.ProviderSerper))
	assert.True(t, cb.IsCircuitOpen(routing.ProviderSerper), "trial in flight")

	st := cb.State(routing.ProviderSerper)
	assert.Equal(t, routing.CircuitHalfOpen, st.State)
	require.NotNil(t, st.TrialStartedAt)
	assert.Equal(t, clock.Now(), *st.TrialStartedAt)

	// a canceled trial frees the slot without counting
	cb.Observe(ctx, routing.ProviderSerper, routing.Outcome{Canceled: true})
	assert.Equal(t, int64(1), cb.State(routing.ProviderSerper).Trips)
	require.True(t, cb.AcquireTrial(routing.ProviderSerper))

	cb.Observe(ctx, routing.ProviderSerper, routing.Outcome{Success: false})
	assert.Equal(t, int64(2), cb.State(routing.ProviderSerper).Trips)
	assert.False(t, cb.AcquireTrial(routing.ProviderSerper))

	clock.Advance(300 * time.Second)
	require.True(t, cb.AcquireTrial(routing.ProviderSerper))
	cb.Observe(ctx, routing.ProviderSerper, routing.Outcome{Success: true})
	assert.Equal(t, routing.CircuitClosed, cb.State(routing.ProviderSerper).State)
	assert.True(t, cb.AcquireTrial(routing.ProviderSerper))
	assert.True(t, cb.AcquireTrial(routing.ProviderSerper))
}

func TestCircuit_UnreportedTrialExpires(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(testSettings(), clock.Now)

	for i := 0; i < 3; i++ {
		cb.RecordFailure(routing.ProviderExa)
	}
	clock.Advance(300 * time.Second)
	require.True(t, cb.AcquireTrial(routing.ProviderExa))

	clock.Advance(halfOpenTrialLease - time.Second)
	assert.False(t, cb.AcquireTrial(routing.ProviderExa))
	clock.Advance(time.Second)
	assert.True(t, cb.AcquireTrial(routing.ProviderExa))
}

func TestCircuit_ConcurrentTrialClaims(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(testSettings(), clock.Now)
	for i := 0; i < 3; i++ {
		cb.RecordFailure(routing.ProviderApollo)
	}
	clock.Advance(300 * time.Second)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cb.AcquireTrial(routing.ProviderApollo) {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), admitted.Load())
}
