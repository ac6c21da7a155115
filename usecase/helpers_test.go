package usecase

import (
	"sync"
	"time"

	settingsDomain "github.com/AzielCF/az-prospect/core/settings/domain"
	"github.com/AzielCF/az-prospect/domains/routing"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testSettings() settingsDomain.RoutingSettings {
	return settingsDomain.RoutingSettings{
		Budgets: map[routing.Provider]int{
			routing.ProviderExa:        1000,
			routing.ProviderSerper:     2500,
			routing.ProviderParallel:   500,
			routing.ProviderApollo:     600,
			routing.ProviderClearout:   1000,
			routing.ProviderFreshsales: routing.Unlimited,
			routing.ProviderHubSpot:    routing.Unlimited,
		},
		DefaultBudget:    100,
		FailureThreshold: 3,
		CooldownSeconds:  300,
		ExaReservePct:    20,
	}
}
