// Package metrics provides Prometheus metrics for provider routing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "prospect"
	subsystem = "routing"
)

var (
	// RoutingDecisions tracks routing calls by task kind and chosen provider ("none" when nothing was eligible).
	RoutingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "decisions_total",
			Help:      "Total number of routing decisions by task kind and chosen provider",
		},
		[]string{"task", "provider"},
	)

	// CandidateRejections tracks why candidates were dropped from a routing decision.
	CandidateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "candidate_rejections_total",
			Help:      "Total number of candidates removed from a routing decision by reason",
		},
		[]string{"provider", "reason"},
	)

	// ProviderCalls tracks reported provider call outcomes.
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "provider_calls_total",
			Help:      "Total number of provider calls by outcome",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderLatency tracks measured provider call latency.
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "provider_latency_seconds",
			Help:      "Provider call latency in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	// CircuitTrips tracks closed/half-open to open transitions.
	CircuitTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "circuit_trips_total",
			Help:      "Total number of circuit breaker trips",
		},
		[]string{"provider"},
	)

	// CircuitOpen is 1 while a provider's circuit is open.
	CircuitOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "circuit_open",
			Help:      "Circuit breaker state (1 = open, 0 = closed or half-open)",
		},
		[]string{"provider"},
	)

	// BudgetUsage tracks today's call count per provider.
	BudgetUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "budget_usage",
			Help:      "Provider calls counted against today's budget",
		},
		[]string{"provider"},
	)

	// CacheHits tracks cache hit counts by backend.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"backend"},
	)

	// CacheMisses tracks cache miss counts by backend.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"backend"},
	)

	// CacheErrors tracks swallowed cache backend failures by operation.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Total number of cache backend errors degraded to a miss or no-op",
		},
		[]string{"backend", "op"},
	)
)

const noProvider = "none"

// RecordDecision records the outcome of one routing call. An empty provider means no provider was eligible.
func RecordDecision(task, provider string) {
	if provider == "" {
		provider = noProvider
	}
	RoutingDecisions.WithLabelValues(task, provider).Inc()
}

func RecordRejection(provider, reason string) {
	CandidateRejections.WithLabelValues(provider, reason).Inc()
}

// RecordProviderCall records one provider call. A zero latency is not observed.
func RecordProviderCall(provider string, success bool, latency time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	ProviderCalls.WithLabelValues(provider, outcome).Inc()
	if latency > 0 {
		ProviderLatency.WithLabelValues(provider).Observe(latency.Seconds())
	}
}

func RecordCircuitTrip(provider string) {
	CircuitTrips.WithLabelValues(provider).Inc()
	CircuitOpen.WithLabelValues(provider).Set(1)
}

func SetCircuitClosed(provider string) {
	CircuitOpen.WithLabelValues(provider).Set(0)
}

func SetBudgetUsage(provider string, count int64) {
	BudgetUsage.WithLabelValues(provider).Set(float64(count))
}

func RecordCacheHit(backend string) {
	CacheHits.WithLabelValues(backend).Inc()
}

func RecordCacheMiss(backend string) {
	CacheMisses.WithLabelValues(backend).Inc()
}

func RecordCacheError(backend, op string) {
	CacheErrors.WithLabelValues(backend, op).Inc()
}
