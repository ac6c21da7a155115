package routing

import (
	"context"
	"time"
)

// HealthSample is one recorded call outcome.
type HealthSample struct {
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	LatencyMs *int64    `json:"latency_ms"`
	ErrorID   string    `json:"error_id,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// SourceHealth summarizes one provider's samples inside the window.
type SourceHealth struct {
	SuccessRate   float64    `json:"success_rate"`
	SampleCount   int        `json:"sample_count"`
	FailureCount  int        `json:"failure_count"`
	AvgLatencyMs  *float64   `json:"avg_latency_ms,omitempty"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
}

// RecentError is a failed call surfaced on the operator dashboard.
type RecentError struct {
	ID        string    `json:"id"`
	Provider  Provider  `json:"provider"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthSummary is the read model shared by the router and the operator endpoint.
type HealthSummary struct {
	Sources      map[Provider]SourceHealth `json:"sources"`
	RecentErrors []RecentError             `json:"recent_errors"`
}

// SampleLog is the append-only backing log of the health monitor.
// Append also evicts samples older than cutoff and beyond maxSamples for that provider.
type SampleLog interface {
	Append(ctx context.Context, provider Provider, sample HealthSample, cutoff time.Time, maxSamples int) error
	Since(ctx context.Context, cutoff time.Time) (map[Provider][]HealthSample, error)
}

// IHealthMonitor is the health surface of the routing layer.
type IHealthMonitor interface {
	OutcomeSink
	GetHealthSummary(ctx context.Context) HealthSummary
}
