package usecase

import (
	"context"
	"sync"
	"time"

	settingsDomain "github.com/AzielCF/az-prospect/core/settings/domain"
	"github.com/AzielCF/az-prospect/domains/routing"
	"github.com/AzielCF/az-prospect/pkg/metrics"
	"github.com/sirupsen/logrus"
)

type dayCounter struct {
	mu       sync.Mutex
	record   routing.UsageRecord
	hydrated bool
}

// usageTracker counts calls per provider and calendar day. The in-process counter is
// authoritative for routing; the store makes the count survive restarts and is merged in
// with max() so other processes sharing the store are taken into account.
type usageTracker struct {
	store    routing.UsageStore
	settings settingsDomain.IRoutingSettings
	loc      *time.Location
	now      func() time.Time
	sinks    []routing.OutcomeSink

	mu       sync.Mutex
	counters map[routing.Provider]*dayCounter
}

// NewUsageTracker builds the budget tracker. store may be nil (counts are then process-local),
// loc nil means the server's local calendar and now nil means time.Now. Every recorded outcome is
// forwarded to sinks after it has been counted.
func NewUsageTracker(store routing.UsageStore, settings settingsDomain.IRoutingSettings, loc *time.Location, now func() time.Time, sinks ...routing.OutcomeSink) routing.IUsageTracker {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &usageTracker{
		store:    store,
		settings: settings,
		loc:      loc,
		now:      now,
		sinks:    sinks,
		counters: make(map[routing.Provider]*dayCounter),
	}
}

func (t *usageTracker) counter(provider routing.Provider) *dayCounter {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.counters[provider]
	if !ok {
		c = &dayCounter{record: routing.UsageRecord{Provider: provider}}
		t.counters[provider] = c
	}
	return c
}

// current rolls c over to today and loads today's stored count on first access.
// Must be called with c.mu held.
func (t *usageTracker) current(ctx context.Context, c *dayCounter, now time.Time) {
	rolled := routing.EffectiveRecord(c.record, now, t.loc)
	if rolled.Day != c.record.Day {
		c.record = rolled
		c.hydrated = false
	}
	if c.hydrated || t.store == nil {
		return
	}

	c.hydrated = true
	stored, err := t.store.Get(ctx, c.record.Provider, c.record.Day)
	if err != nil {
		logrus.WithError(err).Warnf("[BUDGET] Failed to load %s usage for %s, counting from memory", c.record.Provider, c.record.Day)
		return
	}
	if stored > c.record.Count {
		c.record.Count = stored
	}
}

func (t *usageTracker) count(ctx context.Context, provider routing.Provider) routing.UsageRecord {
	c := t.counter(provider)
	c.mu.Lock()
	defer c.mu.Unlock()
	t.current(ctx, c, t.now())
	return c.record
}

func (t *usageTracker) IsUnderBudget(ctx context.Context, provider routing.Provider) bool {
	limit := t.settings.Snapshot(ctx).BudgetFor(provider)
	if limit == routing.Unlimited {
		return true
	}
	return t.count(ctx, provider).Count < int64(limit)
}

// RecordUsage counts one call whether or not it succeeded and forwards the outcome.
func (t *usageTracker) RecordUsage(ctx context.Context, provider routing.Provider, success bool) {
	t.RecordOutcome(ctx, provider, routing.Outcome{Success: success})
}

func (t *usageTracker) RecordOutcome(ctx context.Context, provider routing.Provider, outcome routing.Outcome) {
	now := t.now()
	c := t.counter(provider)

	c.mu.Lock()
	t.current(ctx, c, now)
	c.record.Count++
	day := c.record.Day
	local := c.record.Count
	c.mu.Unlock()

	if t.store != nil {
		stored, err := t.store.Increment(ctx, provider, day)
		if err != nil {
			logrus.WithError(err).Warnf("[BUDGET] Failed to persist %s usage, keeping in-memory count %d", provider, local)
		} else if stored > local {
			c.mu.Lock()
			if c.record.Day == day && stored > c.record.Count {
				c.record.Count = stored
				local = stored
			}
			c.mu.Unlock()
		}
	}

	metrics.SetBudgetUsage(string(provider), local)
	if outcome.Canceled {
		logrus.Debugf("[BUDGET] %s call canceled by caller, counted against budget only", provider)
	} else {
		metrics.RecordProviderCall(string(provider), outcome.Success, outcome.Latency)
	}

	for _, sink := range t.sinks {
		sink.Observe(ctx, provider, outcome)
	}
}

func (t *usageTracker) Usage(ctx context.Context, provider routing.Provider) routing.UsageSummaryEntry {
	limit := t.settings.Snapshot(ctx).BudgetFor(provider)
	return summarize(t.count(ctx, provider).Count, limit)
}

func (t *usageTracker) GetUsageSummary(ctx context.Context) routing.UsageSummary {
	snap := t.settings.Snapshot(ctx)
	out := make(routing.UsageSummary, len(routing.AllProviders))
	for _, p := range routing.AllProviders {
		out[p] = summarize(t.count(ctx, p).Count, snap.BudgetFor(p))
	}
	return out
}

func summarize(count int64, limit int) routing.UsageSummaryEntry {
	entry := routing.UsageSummaryEntry{Count: count, Limit: limit}
	if limit == routing.Unlimited {
		entry.Unlimited = true
		entry.Remaining = -1
		return entry
	}
	entry.Remaining = int64(limit) - count
	if entry.Remaining < 0 {
		entry.Remaining = 0
	}
	return entry
}
