package domain

import (
	"context"
	"strings"
	"time"

	"github.com/AzielCF/az-prospect/domains/routing"
)

// Setting represents a dynamic configuration value stored in the database.
type Setting struct {
	Key   string
	Value string
}

// ISettingsRepository defines the contract for persisting dynamic settings.
type ISettingsRepository interface {
	// Basic CRUD
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	// All returns every stored setting keyed by name.
	All(ctx context.Context) (map[string]string, error)

	// InitSchema creates the necessary tables
	InitSchema(ctx context.Context) error
}

// Common Keys defined in the system
const (
	KeyBudgetLimitPrefix       = "budget_limit:"
	KeyCircuitFailureThreshold = "circuit_failure_threshold"
	KeyCircuitCooldownSeconds  = "circuit_cooldown_seconds"
	KeyExaFallbackReservePct   = "exa_fallback_reserve_pct"
)

// BudgetLimitKey returns the settings key holding the daily ceiling of p.
func BudgetLimitKey(p routing.Provider) string {
	return KeyBudgetLimitPrefix + string(p)
}

// ProviderFromBudgetKey is the inverse of BudgetLimitKey.
func ProviderFromBudgetKey(key string) (routing.Provider, bool) {
	if !strings.HasPrefix(key, KeyBudgetLimitPrefix) {
		return "", false
	}
	p, err := routing.ParseProvider(strings.TrimPrefix(key, KeyBudgetLimitPrefix))
	if err != nil {
		return "", false
	}
	return p, true
}

// RoutingSettings is the resolved view of every operator-tunable routing value.
type RoutingSettings struct {
	Budgets          map[routing.Provider]int `json:"budgets"`
	DefaultBudget    int                      `json:"default_budget"`
	FailureThreshold int                      `json:"circuit_failure_threshold"`
	CooldownSeconds  int                      `json:"circuit_cooldown_seconds"`
	ExaReservePct    int                      `json:"exa_fallback_reserve_pct"`
}

// IRoutingSettings yields the current RoutingSettings.
type IRoutingSettings interface {
	Snapshot(ctx context.Context) RoutingSettings
}

// Snapshot lets a fixed RoutingSettings value stand in for a live source.
func (s RoutingSettings) Snapshot(context.Context) RoutingSettings {
	return s
}

// BudgetFor returns the daily ceiling of p. routing.Unlimited means no ceiling.
func (s RoutingSettings) BudgetFor(p routing.Provider) int {
	if limit, ok := s.Budgets[p]; ok {
		return limit
	}
	return s.DefaultBudget
}

func (s RoutingSettings) Cooldown() time.Duration {
	return time.Duration(s.CooldownSeconds) * time.Second
}

// RoutingSettingsUpdate is a partial update; nil fields are left untouched.
// A nil entry in Budgets removes the override for that provider.
type RoutingSettingsUpdate struct {
	Budgets          map[routing.Provider]*int `json:"budgets,omitempty"`
	FailureThreshold *int                      `json:"circuit_failure_threshold,omitempty"`
	CooldownSeconds  *int                      `json:"circuit_cooldown_seconds,omitempty"`
	ExaReservePct    *int                      `json:"exa_fallback_reserve_pct,omitempty"`
}

// ISettingsService is the operator surface over the routing settings.
type ISettingsService interface {
	IRoutingSettings
	Defaults() RoutingSettings
	Update(ctx context.Context, u RoutingSettingsUpdate) error
}
