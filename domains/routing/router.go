package routing

import "context"

// Decision is the ephemeral result of one routing call. It is never persisted.
type Decision struct {
	TaskKind   TaskKind            `json:"task_kind"`
	Candidates []Provider          `json:"candidates"`
	Chosen     Provider            `json:"chosen,omitempty"`
	Rejected   map[Provider]string `json:"rejected,omitempty"`
}

// Found reports whether a provider was chosen.
func (d Decision) Found() bool {
	return d.Chosen != ""
}

// Rejection reasons recorded in Decision.Rejected.
const (
	ReasonNotConfigured    = "not_configured"
	ReasonCircuitOpen      = "circuit_open"
	ReasonOverBudget       = "over_budget"
	ReasonFallbackReserved = "fallback_reserved"
)

// IRouter is the public surface of the smart router.
type IRouter interface {
	PickDiscoveryEngine(ctx context.Context) (Provider, bool)
	PickNameEngine(ctx context.Context) (Provider, bool)
	// Decide is a read-only preview; Route also claims the half-open trial of the chosen provider.
	Decide(ctx context.Context, task TaskKind) Decision
	Route(ctx context.Context, task TaskKind) Decision
	RecordUsage(ctx context.Context, provider Provider, success bool)
	RecordOutcome(ctx context.Context, provider Provider, outcome Outcome)
	IsUnderBudget(ctx context.Context, provider Provider) bool
	IsExaFallbackAllowed(ctx context.Context) bool
	GetUsageSummary(ctx context.Context) UsageSummary
}
