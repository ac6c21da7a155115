package validations

import (
	"context"
	"fmt"
	"sort"

	settingsDomain "github.com/AzielCF/az-prospect/core/settings/domain"
	"github.com/AzielCF/az-prospect/domains/routing"
	pkgError "github.com/AzielCF/az-prospect/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateRoutingSettings(ctx context.Context, request settingsDomain.RoutingSettingsUpdate) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Budgets,
			validation.By(knownProviders),
			validation.Each(validation.Min(routing.Unlimited)),
		),
		validation.Field(&request.FailureThreshold, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&request.CooldownSeconds, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&request.ExaReservePct, validation.Min(0), validation.Max(100)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func knownProviders(value any) error {
	budgets, _ := value.(map[routing.Provider]*int)
	var unknown []string
	for p := range budgets {
		if !p.Valid() {
			unknown = append(unknown, string(p))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("unknown provider %q", unknown[0])
}
