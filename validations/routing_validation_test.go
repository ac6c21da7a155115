package validations

import (
	"context"
	"testing"

	settingsDomain "github.com/AzielCF/az-prospect/core/settings/domain"
	"github.com/AzielCF/az-prospect/domains/routing"
	pkgError "github.com/AzielCF/az-prospect/pkg/error"
	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int {
	return &v
}

func TestValidateRoutingSettings(t *testing.T) {
	tests := []struct {
		name    string
		request settingsDomain.RoutingSettingsUpdate
		wantErr bool
	}{
		{
			name:    "empty update",
			request: settingsDomain.RoutingSettingsUpdate{},
		},
		{
			name: "valid budgets including unlimited and clear",
			request: settingsDomain.RoutingSettingsUpdate{
				Budgets: map[routing.Provider]*int{
					routing.ProviderExa:    intPtr(500),
					routing.ProviderSerper: intPtr(routing.Unlimited),
					routing.ProviderApollo: nil,
				},
			},
		},
		{
			name: "zero budget is allowed",
			request: settingsDomain.RoutingSettingsUpdate{
				Budgets: map[routing.Provider]*int{routing.ProviderExa: intPtr(0)},
			},
		},
		{
			name: "budget below unlimited",
			request: settingsDomain.RoutingSettingsUpdate{
				Budgets: map[routing.Provider]*int{routing.ProviderExa: intPtr(-2)},
			},
			wantErr: true,
		},
		{
			name: "unknown provider",
			request: settingsDomain.RoutingSettingsUpdate{
				Budgets: map[routing.Provider]*int{"bing": intPtr(10)},
			},
			wantErr: true,
		},
		{
			name:    "threshold zero",
			request: settingsDomain.RoutingSettingsUpdate{FailureThreshold: intPtr(0)},
			wantErr: true,
		},
		{
			name:    "cooldown negative",
			request: settingsDomain.RoutingSettingsUpdate{CooldownSeconds: intPtr(-5)},
			wantErr: true,
		},
		{
			name:    "reserve zero is allowed",
			request: settingsDomain.RoutingSettingsUpdate{ExaReservePct: intPtr(0)},
		},
		{
			name:    "reserve above 100",
			request: settingsDomain.RoutingSettingsUpdate{ExaReservePct: intPtr(101)},
			wantErr: true,
		},
		{
			name: "all fields valid",
			request: settingsDomain.RoutingSettingsUpdate{
				FailureThreshold: intPtr(5),
				CooldownSeconds:  intPtr(60),
				ExaReservePct:    intPtr(25),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoutingSettings(context.Background(), tt.request)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.IsType(t, pkgError.ValidationError(""), err)
		})
	}
}
