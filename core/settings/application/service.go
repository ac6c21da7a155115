package application

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/AzielCF/az-prospect/core/config"
	"github.com/AzielCF/az-prospect/core/settings/domain"
	"github.com/AzielCF/az-prospect/core/settings/infrastructure"
	"github.com/AzielCF/az-prospect/domains/routing"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultSnapshotTTL bounds how long admin edits made by another process take to apply.
const DefaultSnapshotTTL = 30 * time.Second

// SettingsService resolves routing settings as static defaults, then env, then database overrides.
// The resolved snapshot is cached in process; Reset drops it.
type SettingsService struct {
	repo     domain.ISettingsRepository
	defaults config.RoutingConfig
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	schemaOK bool
	snapshot *domain.RoutingSettings
	loadedAt time.Time
}

func NewSettingsService(db *gorm.DB, defaults config.RoutingConfig) *SettingsService {
	return NewSettingsServiceWithRepo(infrastructure.NewGlobalSettingsGormRepository(db), defaults)
}

func NewSettingsServiceWithRepo(repo domain.ISettingsRepository, defaults config.RoutingConfig) *SettingsService {
	return &SettingsService{
		repo:     repo,
		defaults: defaults,
		ttl:      DefaultSnapshotTTL,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for snapshot expiry.
func (s *SettingsService) WithClock(now func() time.Time) *SettingsService {
	s.now = now
	return s
}

// Snapshot returns the resolved settings. It never fails: repository errors fall back to env and defaults.
func (s *SettingsService) Snapshot(ctx context.Context) domain.RoutingSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.snapshot != nil && now.Sub(s.loadedAt) < s.ttl {
		return *s.snapshot
	}

	resolved := s.resolve(ctx)
	s.snapshot = &resolved
	s.loadedAt = now
	return resolved
}

// Reset drops the cached snapshot so the next read goes back to the repository.
func (s *SettingsService) Reset() {
	s.mu.Lock()
	s.snapshot = nil
	s.mu.Unlock()
}

// Defaults returns the settings before any database override.
func (s *SettingsService) Defaults() domain.RoutingSettings {
	budgets := make(map[routing.Provider]int, len(routing.AllProviders))
	for _, p := range routing.AllProviders {
		budgets[p] = s.defaults.BudgetFor(p)
	}
	return domain.RoutingSettings{
		Budgets:          budgets,
		DefaultBudget:    config.DefaultBudget,
		FailureThreshold: positiveOr(s.defaults.FailureThreshold, config.DefaultFailureThreshold),
		CooldownSeconds:  positiveOr(s.defaults.CooldownSeconds, config.DefaultCooldownSeconds),
		ExaReservePct:    s.defaults.ExaReservePct,
	}
}

func (s *SettingsService) resolve(ctx context.Context) domain.RoutingSettings {
	resolved := s.Defaults()

	if !s.schemaOK {
		if err := s.repo.InitSchema(ctx); err != nil {
			logrus.WithError(err).Warn("[SETTINGS] Failed to init settings schema, using defaults")
			return resolved
		}
		s.schemaOK = true
	}

	stored, err := s.repo.All(ctx)
	if err != nil {
		logrus.WithError(err).Warn("[SETTINGS] Failed to load settings overrides, using defaults")
		return resolved
	}

	for key, raw := range stored {
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			logrus.Warnf("[SETTINGS] Ignoring non-numeric value %q for %s", raw, key)
			continue
		}

		if p, ok := domain.ProviderFromBudgetKey(key); ok {
			if n < routing.Unlimited {
				logrus.Warnf("[SETTINGS] Ignoring invalid budget %d for %s", n, p)
				continue
			}
			resolved.Budgets[p] = n
			continue
		}

		switch key {
		case domain.KeyCircuitFailureThreshold:
			if n > 0 {
				resolved.FailureThreshold = n
			}
		case domain.KeyCircuitCooldownSeconds:
			if n > 0 {
				resolved.CooldownSeconds = n
			}
		case domain.KeyExaFallbackReservePct:
			if n >= 0 && n <= 100 {
				resolved.ExaReservePct = n
			}
		}
	}
	return resolved
}

// Update persists every non-nil field of u and drops the cached snapshot.
func (s *SettingsService) Update(ctx context.Context, u domain.RoutingSettingsUpdate) error {
	defer s.Reset()

	for p, limit := range u.Budgets {
		if limit == nil {
			if err := s.repo.InitSchema(ctx); err != nil {
				return fmt.Errorf("failed to init settings schema: %w", err)
			}
			if err := s.repo.Delete(ctx, domain.BudgetLimitKey(p)); err != nil {
				return fmt.Errorf("failed to clear budget for %s: %w", p, err)
			}
			continue
		}
		if err := s.SetBudget(ctx, p, *limit); err != nil {
			return err
		}
	}
	if u.FailureThreshold != nil {
		if err := s.SetFailureThreshold(ctx, *u.FailureThreshold); err != nil {
			return err
		}
	}
	if u.CooldownSeconds != nil {
		if err := s.SetCooldownSeconds(ctx, *u.CooldownSeconds); err != nil {
			return err
		}
	}
	if u.ExaReservePct != nil {
		if err := s.SetExaReservePct(ctx, *u.ExaReservePct); err != nil {
			return err
		}
	}
	return nil
}

func (s *SettingsService) SetBudget(ctx context.Context, p routing.Provider, limit int) error {
	if !p.Valid() {
		return routing.ErrUnknownProvider
	}
	if limit < routing.Unlimited {
		limit = routing.Unlimited
	}
	return s.set(ctx, domain.BudgetLimitKey(p), limit)
}

func (s *SettingsService) SetFailureThreshold(ctx context.Context, v int) error {
	if v < 1 {
		v = 1
	}
	return s.set(ctx, domain.KeyCircuitFailureThreshold, v)
}

func (s *SettingsService) SetCooldownSeconds(ctx context.Context, v int) error {
	if v < 1 {
		v = 1
	}
	return s.set(ctx, domain.KeyCircuitCooldownSeconds, v)
}

func (s *SettingsService) SetExaReservePct(ctx context.Context, v int) error {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return s.set(ctx, domain.KeyExaFallbackReservePct, v)
}

func (s *SettingsService) set(ctx context.Context, key string, v int) error {
	if err := s.repo.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to init settings schema: %w", err)
	}
	if err := s.repo.Set(ctx, key, strconv.Itoa(v)); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	s.Reset()
	return nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
