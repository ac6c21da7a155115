package usecase

import (
	"context"
	"sort"

	settingsDomain "github.com/AzielCF/az-prospect/core/settings/domain"
	"github.com/AzielCF/az-prospect/domains/routing"
	"github.com/AzielCF/az-prospect/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// DefaultHealthMinSamples is the sample count below which a provider ranks as fully healthy.
const DefaultHealthMinSamples = 5

// Static priority per task kind, best first.
var (
	DiscoveryPriority      = []routing.Provider{routing.ProviderExa, routing.ProviderParallel, routing.ProviderSerper}
	NameResolutionPriority = []routing.Provider{routing.ProviderSerper, routing.ProviderApollo, routing.ProviderExa}
)

// fallbackOnly lists, per task kind, providers that are only used behind the exa reservation gate.
var fallbackOnly = map[routing.TaskKind]map[routing.Provider]bool{
	routing.TaskNameResolution: {routing.ProviderExa: true},
}

// Priority returns the static candidate order of task.
func Priority(task routing.TaskKind) ([]routing.Provider, bool) {
	switch task {
	case routing.TaskDiscovery:
		return DiscoveryPriority, true
	case routing.TaskNameResolution:
		return NameResolutionPriority, true
	default:
		return nil, false
	}
}

// Candidate is the state of one provider as seen by Select.
type Candidate struct {
	Provider    routing.Provider
	Configured  bool
	CircuitOpen bool
	UnderBudget bool
	// FallbackOnly candidates need FallbackAllowed to stay in and always rank last.
	FallbackOnly    bool
	FallbackAllowed bool
	SuccessRate     float64
	SampleCount     int
}

// Select picks a provider from candidates, given in static priority order. It is pure:
// the same input always yields the same Decision.
func Select(task routing.TaskKind, candidates []Candidate, minSamples int) routing.Decision {
	d := routing.Decision{TaskKind: task, Candidates: []routing.Provider{}}

	type ranked struct {
		Candidate
		rate float64
	}
	var survivors []ranked

	for _, c := range candidates {
		reason := ""
		switch {
		case !c.Configured:
			reason = routing.ReasonNotConfigured
		case c.CircuitOpen:
			reason = routing.ReasonCircuitOpen
		case !c.UnderBudget:
			reason = routing.ReasonOverBudget
		case c.FallbackOnly && !c.FallbackAllowed:
			reason = routing.ReasonFallbackReserved
		}
		if reason != "" {
			if d.Rejected == nil {
				d.Rejected = make(map[routing.Provider]string)
			}
			d.Rejected[c.Provider] = reason
			continue
		}

		rate := c.SuccessRate
		if c.SampleCount < minSamples {
			rate = 1
		}
		survivors = append(survivors, ranked{Candidate: c, rate: rate})
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		if survivors[i].FallbackOnly != survivors[j].FallbackOnly {
			return !survivors[i].FallbackOnly
		}
		return survivors[i].rate > survivors[j].rate
	})

	for _, s := range survivors {
		d.Candidates = append(d.Candidates, s.Provider)
	}
	if len(d.Candidates) > 0 {
		d.Chosen = d.Candidates[0]
	}
	return d
}

type smartRouter struct {
	availability map[routing.Provider]routing.AvailabilityProvider
	circuit      routing.ICircuitBreaker
	usage        routing.IUsageTracker
	health       routing.IHealthMonitor
	settings     settingsDomain.IRoutingSettings
	minSamples   int
}

// NewRouter combines availability, circuit, budget and health into per-task provider picks.
// Providers missing from availability are treated as not configured.
func NewRouter(
	availability map[routing.Provider]routing.AvailabilityProvider,
	circuit routing.ICircuitBreaker,
	usage routing.IUsageTracker,
	health routing.IHealthMonitor,
	settings settingsDomain.IRoutingSettings,
	minSamples int,
) routing.IRouter {
	if minSamples <= 0 {
		minSamples = DefaultHealthMinSamples
	}
	return &smartRouter{
		availability: availability,
		circuit:      circuit,
		usage:        usage,
		health:       health,
		settings:     settings,
		minSamples:   minSamples,
	}
}

func (r *smartRouter) configured(p routing.Provider) bool {
	check, ok := r.availability[p]
	return ok && check != nil && check.Configured()
}

func (r *smartRouter) PickDiscoveryEngine(ctx context.Context) (routing.Provider, bool) {
	d := r.Route(ctx, routing.TaskDiscovery)
	return d.Chosen, d.Found()
}

func (r *smartRouter) PickNameEngine(ctx context.Context) (routing.Provider, bool) {
	d := r.Route(ctx, routing.TaskNameResolution)
	return d.Chosen, d.Found()
}

func (r *smartRouter) Decide(ctx context.Context, task routing.TaskKind) routing.Decision {
	return r.decide(ctx, task, false)
}

// Route is Decide for a call that is about to be made. A chosen provider whose half-open trial
// is already taken is rejected as circuit_open and the next candidate is tried.
func (r *smartRouter) Route(ctx context.Context, task routing.TaskKind) routing.Decision {
	return r.decide(ctx, task, true)
}

func (r *smartRouter) decide(ctx context.Context, task routing.TaskKind, claim bool) routing.Decision {
	order, ok := Priority(task)
	if !ok {
		logrus.Warnf("[ROUTER] Unknown task kind %q", task)
		return routing.Decision{TaskKind: task, Candidates: []routing.Provider{}}
	}

	health := r.health.GetHealthSummary(ctx)
	gates := fallbackOnly[task]

	candidates := make([]Candidate, 0, len(order))
	for _, p := range order {
		c := Candidate{Provider: p, Configured: r.configured(p)}
		if c.Configured {
			c.CircuitOpen = r.circuit.IsCircuitOpen(p)
		}
		if c.Configured && !c.CircuitOpen {
			c.UnderBudget = r.usage.IsUnderBudget(ctx, p)
		}
		if gates[p] {
			c.FallbackOnly = true
			if c.Configured && !c.CircuitOpen && c.UnderBudget {
				c.FallbackAllowed = r.fallbackAllowed(ctx, p)
			}
		}
		if h, ok := health.Sources[p]; ok {
			c.SuccessRate = h.SuccessRate
			c.SampleCount = h.SampleCount
		} else {
			c.SuccessRate = 1
		}
		candidates = append(candidates, c)
	}

	d := Select(task, candidates, r.minSamples)
	for claim && d.Found() && !r.circuit.AcquireTrial(d.Chosen) {
		for i := range candidates {
			if candidates[i].Provider == d.Chosen {
				candidates[i].CircuitOpen = true
			}
		}
		d = Select(task, candidates, r.minSamples)
	}

	metrics.RecordDecision(string(task), string(d.Chosen))
	for p, reason := range d.Rejected {
		metrics.RecordRejection(string(p), reason)
	}
	if d.Found() {
		logrus.Debugf("[ROUTER] %s -> %s (candidates %v)", task, d.Chosen, d.Candidates)
	} else {
		logrus.WithField("rejected", d.Rejected).Infof("[ROUTER] No provider available for %s", task)
	}
	return d
}

func (r *smartRouter) fallbackAllowed(ctx context.Context, p routing.Provider) bool {
	if p == routing.ProviderExa {
		return r.IsExaFallbackAllowed(ctx)
	}
	return true
}

// IsExaFallbackAllowed keeps the last reserve percent of exa's daily budget for discovery.
// It is true iff exa is configured, its circuit is not open and it is either unlimited or
// below limit*(100-reserve)/100 calls today.
func (r *smartRouter) IsExaFallbackAllowed(ctx context.Context) bool {
	if !r.configured(routing.ProviderExa) || r.circuit.IsCircuitOpen(routing.ProviderExa) {
		return false
	}
	usage := r.usage.Usage(ctx, routing.ProviderExa)
	if usage.Unlimited {
		return true
	}
	reserve := r.settings.Snapshot(ctx).ExaReservePct
	return usage.Count*100 < int64(usage.Limit)*int64(100-reserve)
}

func (r *smartRouter) RecordUsage(ctx context.Context, provider routing.Provider, success bool) {
	r.usage.RecordUsage(ctx, provider, success)
}

func (r *smartRouter) RecordOutcome(ctx context.Context, provider routing.Provider, outcome routing.Outcome) {
	r.usage.RecordOutcome(ctx, provider, outcome)
}

func (r *smartRouter) IsUnderBudget(ctx context.Context, provider routing.Provider) bool {
	return r.usage.IsUnderBudget(ctx, provider)
}

func (r *smartRouter) GetUsageSummary(ctx context.Context) routing.UsageSummary {
	return r.usage.GetUsageSummary(ctx)
}
