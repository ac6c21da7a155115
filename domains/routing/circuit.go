package routing

import "time"

// CircuitStatus is the state of a provider's circuit breaker.
type CircuitStatus string

const (
	CircuitClosed   CircuitStatus = "closed"
	CircuitOpen     CircuitStatus = "open"
	CircuitHalfOpen CircuitStatus = "half_open"
)

// CircuitState is the per-provider breaker record.
// OpenedAt is nil unless the breaker has tripped since the last close.
type CircuitState struct {
	Provider            Provider      `json:"provider"`
	State               CircuitStatus `json:"state"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	OpenedAt            *time.Time    `json:"opened_at,omitempty"`
	TrialStartedAt      *time.Time    `json:"trial_started_at,omitempty"`
	Trips               int64         `json:"trips"`
}

// CircuitSnapshot is the dashboard view of a CircuitState.
type CircuitSnapshot struct {
	CircuitState
	OpenedAgo   string     `json:"opened_ago,omitempty"`
	RetryAfter  *time.Time `json:"retry_after,omitempty"`
	Threshold   int        `json:"threshold"`
	CooldownSec int        `json:"cooldown_seconds"`
}

// ICircuitBreaker is the breaker surface shared with providers outside the routed task kinds.
// It also observes outcomes forwarded by the usage tracker.
type ICircuitBreaker interface {
	OutcomeSink
	IsCircuitOpen(provider Provider) bool
	// AcquireTrial reports whether a call to provider may start now. A closed circuit always
	// admits; a half-open one admits a single trial until its outcome is reported.
	AcquireTrial(provider Provider) bool
	RecordSuccess(provider Provider)
	RecordFailure(provider Provider)
	ResetCircuit(provider Provider)
	State(provider Provider) CircuitState
	Snapshots() []CircuitSnapshot
}
