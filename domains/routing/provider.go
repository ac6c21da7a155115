package routing

import (
	"errors"
	"strings"
)

// Provider identifies an external data provider.
type Provider string

const (
	ProviderExa        Provider = "exa"
	ProviderSerper     Provider = "serper"
	ProviderParallel   Provider = "parallel"
	ProviderApollo     Provider = "apollo"
	ProviderClearout   Provider = "clearout"
	ProviderFreshsales Provider = "freshsales"
	ProviderHubSpot    Provider = "hubspot"
)

// AllProviders is the closed set of known providers, in catalogue order.
var AllProviders = []Provider{
	ProviderExa,
	ProviderSerper,
	ProviderParallel,
	ProviderApollo,
	ProviderClearout,
	ProviderFreshsales,
	ProviderHubSpot,
}

// TaskKind is the kind of lookup a caller wants routed.
type TaskKind string

const (
	// TaskDiscovery is broad semantic/keyword company search.
	TaskDiscovery TaskKind = "discovery"
	// TaskNameResolution is exact or near-exact company name to domain lookup.
	TaskNameResolution TaskKind = "name-resolution"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrUnknownTaskKind = errors.New("unknown task kind")
)

// ParseProvider normalizes s and checks it against the catalogue.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", ErrUnknownProvider
	}
	return p, nil
}

func (p Provider) Valid() bool {
	for _, known := range AllProviders {
		if p == known {
			return true
		}
	}
	return false
}

func (p Provider) String() string {
	return string(p)
}

// ParseTaskKind accepts "discovery" and "name-resolution" (also "name" and "name_resolution").
func ParseTaskKind(s string) (TaskKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(TaskDiscovery):
		return TaskDiscovery, nil
	case string(TaskNameResolution), "name", "name_resolution":
		return TaskNameResolution, nil
	default:
		return "", ErrUnknownTaskKind
	}
}

// AvailabilityProvider reports whether a provider has the configuration it needs
// (typically an API key). Implementations must be pure and never perform I/O.
type AvailabilityProvider interface {
	Configured() bool
}

// AvailabilityFunc adapts a plain function to AvailabilityProvider.
type AvailabilityFunc func() bool

func (f AvailabilityFunc) Configured() bool {
	return f()
}
