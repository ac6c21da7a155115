package usecase

import (
	"context"
	"sync"
	"time"

	settingsDomain "github.com/AzielCF/az-prospect/core/settings/domain"
	"github.com/AzielCF/az-prospect/domains/routing"
	"github.com/AzielCF/az-prospect/pkg/metrics"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// halfOpenTrialLease frees a half-open trial whose outcome was never reported.
const halfOpenTrialLease = time.Minute

type circuitEntry struct {
	open     bool
	failures int
	openedAt time.Time
	trialAt  time.Time
	trips    int64
}

func (e *circuitEntry) trialInFlight(now time.Time) bool {
	return !e.trialAt.IsZero() && now.Before(e.trialAt.Add(halfOpenTrialLease))
}

// circuitBreaker trips a provider after a run of consecutive failures and, once the cool-down
// has elapsed, admits one trial call whose outcome closes or re-opens it. Nothing runs in the background: every transition is
// evaluated against the clock at call time.
type circuitBreaker struct {
	settings settingsDomain.IRoutingSettings
	now      func() time.Time

	mu     sync.Mutex
	states map[routing.Provider]*circuitEntry
}

// NewCircuitBreaker reads the threshold and cool-down from settings on every call. A nil clock means time.Now.
func NewCircuitBreaker(settings settingsDomain.IRoutingSettings, now func() time.Time) routing.ICircuitBreaker {
	if now == nil {
		now = time.Now
	}
	return &circuitBreaker{
		settings: settings,
		now:      now,
		states:   make(map[routing.Provider]*circuitEntry),
	}
}

func (b *circuitBreaker) policy() (int, time.Duration) {
	s := b.settings.Snapshot(context.Background())
	threshold := s.FailureThreshold
	if threshold < 1 {
		threshold = 1
	}
	return threshold, s.Cooldown()
}

// entry must be called with b.mu held.
func (b *circuitBreaker) entry(provider routing.Provider) *circuitEntry {
	e, ok := b.states[provider]
	if !ok {
		e = &circuitEntry{}
		b.states[provider] = e
	}
	return e
}

func (b *circuitBreaker) IsCircuitOpen(provider routing.Provider) bool {
	_, cooldown := b.policy()

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.states[provider]
	if !ok || !e.open {
		return false
	}
	now := b.now()
	return now.Before(e.openedAt.Add(cooldown)) || e.trialInFlight(now)
}

func (b *circuitBreaker) AcquireTrial(provider routing.Provider) bool {
	_, cooldown := b.policy()

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.states[provider]
	if !ok || !e.open {
		return true
	}
	now := b.now()
	if now.Before(e.openedAt.Add(cooldown)) || e.trialInFlight(now) {
		return false
	}
	e.trialAt = now
	logrus.Infof("[CIRCUIT] %s half-open, trial call started", provider)
	return true
}

func (b *circuitBreaker) RecordSuccess(provider routing.Provider) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.entry(provider)
	e.failures = 0
	e.trialAt = time.Time{}
	if e.open {
		e.open = false
		e.openedAt = time.Time{}
		metrics.SetCircuitClosed(string(provider))
		logrus.Infof("[CIRCUIT] %s closed after successful call", provider)
	}
}

func (b *circuitBreaker) RecordFailure(provider routing.Provider) {
	threshold, cooldown := b.policy()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	e := b.entry(provider)
	e.failures++

	if e.open {
		// a failed trial after the cool-down re-opens with a fresh window
		if !now.Before(e.openedAt.Add(cooldown)) {
			b.trip(provider, e, now, "half-open trial failed")
		}
		return
	}
	if e.failures >= threshold {
		b.trip(provider, e, now, "consecutive failures reached threshold")
	}
}

// trip must be called with b.mu held.
func (b *circuitBreaker) trip(provider routing.Provider, e *circuitEntry, now time.Time, reason string) {
	e.open = true
	e.openedAt = now
	e.trialAt = time.Time{}
	e.trips++
	metrics.RecordCircuitTrip(string(provider))
	logrus.WithFields(logrus.Fields{
		"provider": provider,
		"failures": e.failures,
		"trips":    e.trips,
	}).Warnf("[CIRCUIT] %s opened: %s", provider, reason)
}

func (b *circuitBreaker) ResetCircuit(provider routing.Provider) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.entry(provider)
	wasOpen := e.open
	e.open = false
	e.failures = 0
	e.openedAt = time.Time{}
	e.trialAt = time.Time{}
	metrics.SetCircuitClosed(string(provider))
	if wasOpen {
		logrus.Infof("[CIRCUIT] %s reset by operator", provider)
	}
}

func (b *circuitBreaker) Observe(ctx context.Context, provider routing.Provider, outcome routing.Outcome) {
	if outcome.Canceled {
		b.releaseTrial(provider)
		return
	}
	if outcome.Success {
		b.RecordSuccess(provider)
		return
	}
	b.RecordFailure(provider)
}

// releaseTrial frees an in-flight trial without judging the provider.
func (b *circuitBreaker) releaseTrial(provider routing.Provider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.states[provider]; ok {
		e.trialAt = time.Time{}
	}
}

func (b *circuitBreaker) State(provider routing.Provider) routing.CircuitState {
	_, cooldown := b.policy()

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked(provider, cooldown)
}

func (b *circuitBreaker) stateLocked(provider routing.Provider, cooldown time.Duration) routing.CircuitState {
	st := routing.CircuitState{Provider: provider, State: routing.CircuitClosed}
	e, ok := b.states[provider]
	if !ok {
		return st
	}
	st.ConsecutiveFailures = e.failures
	st.Trips = e.trips
	if e.open {
		openedAt := e.openedAt
		st.OpenedAt = &openedAt
		st.State = routing.CircuitOpen
		now := b.now()
		if !now.Before(openedAt.Add(cooldown)) {
			st.State = routing.CircuitHalfOpen
			if e.trialInFlight(now) {
				trialAt := e.trialAt
				st.TrialStartedAt = &trialAt
			}
		}
	}
	return st
}

func (b *circuitBreaker) Snapshots() []routing.CircuitSnapshot {
	threshold, cooldown := b.policy()

	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]routing.CircuitSnapshot, 0, len(routing.AllProviders))
	for _, p := range routing.AllProviders {
		snap := routing.CircuitSnapshot{
			CircuitState: b.stateLocked(p, cooldown),
			Threshold:    threshold,
			CooldownSec:  int(cooldown / time.Second),
		}
		if snap.OpenedAt != nil {
			snap.OpenedAgo = humanize.RelTime(*snap.OpenedAt, b.now(), "ago", "from now")
			retry := snap.OpenedAt.Add(cooldown)
			snap.RetryAfter = &retry
		}
		out = append(out, snap)
	}
	return out
}
