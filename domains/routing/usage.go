package routing

import (
	"context"
	"time"

	"github.com/AzielCF/az-prospect/pkg/timeutils"
)

// Unlimited marks a provider without a daily ceiling.
const Unlimited = -1

// UsageRecord is a provider's call count for one calendar day.
type UsageRecord struct {
	Provider Provider `json:"provider"`
	Day      string   `json:"day"`
	Count    int64    `json:"count"`
}

// EffectiveRecord returns stored as seen at now: a record from an earlier day counts as a fresh, empty one.
func EffectiveRecord(stored UsageRecord, now time.Time, loc *time.Location) UsageRecord {
	today := timeutils.DayKey(now, loc)
	if stored.Day != today {
		return UsageRecord{Provider: stored.Provider, Day: today}
	}
	return stored
}

// UsageSummaryEntry is the dashboard view of one provider's budget.
type UsageSummaryEntry struct {
	Count     int64 `json:"count"`
	Limit     int   `json:"limit"`
	Unlimited bool  `json:"unlimited"`
	Remaining int64 `json:"remaining"`
}

// UsageSummary maps every known provider to its budget for today.
type UsageSummary map[Provider]UsageSummaryEntry

// UsageStore persists per-provider per-day counters.
// Get returns 0 for a day that has no row yet; Increment creates the row if missing
// and returns the count after the increment. Increment must be atomic.
type UsageStore interface {
	Get(ctx context.Context, provider Provider, day string) (int64, error)
	Increment(ctx context.Context, provider Provider, day string) (int64, error)
}

// Outcome describes the result of one provider call.
// A zero Latency means the caller did not measure it.
// Canceled marks a call abandoned by its caller: it still consumed budget but says nothing
// about the provider's health.
type Outcome struct {
	Success  bool
	Canceled bool
	Latency  time.Duration
	Err      error
}

// OutcomeSink receives call outcomes forwarded by the usage tracker.
// Sinks must not treat a Canceled outcome as a failure.
type OutcomeSink interface {
	Observe(ctx context.Context, provider Provider, outcome Outcome)
}

// IUsageTracker is the budget surface of the routing layer.
type IUsageTracker interface {
	IsUnderBudget(ctx context.Context, provider Provider) bool
	RecordUsage(ctx context.Context, provider Provider, success bool)
	RecordOutcome(ctx context.Context, provider Provider, outcome Outcome)
	Usage(ctx context.Context, provider Provider) UsageSummaryEntry
	GetUsageSummary(ctx context.Context) UsageSummary
}
