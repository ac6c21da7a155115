package providers

import (
	"strings"

	"github.com/AzielCF/az-prospect/core/config"
	"github.com/AzielCF/az-prospect/domains/routing"
)

// APIKeyAvailability reports a provider as configured when its API key is non-blank.
type APIKeyAvailability struct {
	key string
}

func NewAPIKeyAvailability(key string) APIKeyAvailability {
	return APIKeyAvailability{key: strings.TrimSpace(key)}
}

func (a APIKeyAvailability) Configured() bool {
	return a.key != ""
}

// Registry maps each provider to its availability check. Providers missing from the map are not configured.
type Registry map[routing.Provider]routing.AvailabilityProvider

// NewRegistry builds the availability checks from the configured API keys.
func NewRegistry(keys config.APIKeysConfig) Registry {
	reg := make(Registry, len(routing.AllProviders))
	for _, p := range routing.AllProviders {
		reg[p] = NewAPIKeyAvailability(keys.Get(p))
	}
	return reg
}

// IsProviderAvailable reports whether p has the configuration it needs.
func (r Registry) IsProviderAvailable(p routing.Provider) bool {
	check, ok := r[p]
	if !ok || check == nil {
		return false
	}
	return check.Configured()
}

// Configured lists the available providers in catalogue order.
func (r Registry) Configured() []routing.Provider {
	var out []routing.Provider
	for _, p := range routing.AllProviders {
		if r.IsProviderAvailable(p) {
			out = append(out, p)
		}
	}
	return out
}
