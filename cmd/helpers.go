package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/AzielCF/az-prospect/core/config"
	coreDB "github.com/AzielCF/az-prospect/core/database"
	settingsApp "github.com/AzielCF/az-prospect/core/settings/application"
	domainCache "github.com/AzielCF/az-prospect/domains/cache"
	"github.com/AzielCF/az-prospect/domains/routing"
	"github.com/AzielCF/az-prospect/infrastructure/providers"
	"github.com/AzielCF/az-prospect/infrastructure/valkey"
	"github.com/AzielCF/az-prospect/pkg/timeutils"
	"github.com/AzielCF/az-prospect/pkg/workerpool"
	"github.com/AzielCF/az-prospect/repository"
	uiRest "github.com/AzielCF/az-prospect/ui/rest"
	"github.com/AzielCF/az-prospect/usecase"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// components is everything the commands need, built once per process.
type components struct {
	DB       *gorm.DB
	Valkey   *valkey.Client
	Location *time.Location
	Registry providers.Registry
	Settings *settingsApp.SettingsService
	Cache    domainCache.ICacheUsecase
	Circuit  routing.ICircuitBreaker
	Health   routing.IHealthMonitor
	Usage    routing.IUsageTracker
	Router   routing.IRouter
	// History is nil when usage counters live in valkey.
	History *repository.GormUsageStore
	// Writer carries health samples to valkey; nil for the in-memory log.
	Writer *workerpool.Pool
}

const (
	healthWriterWorkers = 4
	healthWriterQueue   = 1000
)

func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	loc, err := timeutils.LoadLocation(cfg.Routing.BudgetTimezone)
	if err != nil {
		return nil, err
	}

	db, err := coreDB.NewDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := migrateSchemas(ctx, db); err != nil {
		return nil, err
	}

	c := &components{
		DB:       db,
		Location: loc,
		Registry: providers.NewRegistry(cfg.APIKeys),
		Settings: settingsApp.NewSettingsService(db, cfg.Routing),
	}

	var (
		cacheStore domainCache.Store
		usageStore routing.UsageStore
		sampleLog  routing.SampleLog
	)

	if cfg.Database.ValkeyEnabled {
		vk, err := valkey.NewClient(valkey.ConfigFrom(cfg))
		if err != nil {
			logrus.WithError(err).Warn("[APP] Valkey unavailable, using local stores")
		} else {
			logrus.Infof("[APP] Valkey connected at %s", cfg.Database.ValkeyAddress)
			c.Valkey = vk
			cacheStore = repository.NewValkeyCacheStore(vk)
			usageStore = repository.NewValkeyUsageStore(vk)
			c.Writer = workerpool.New("health-writer", healthWriterWorkers, healthWriterQueue)
			c.Writer.Start(ctx)
			sampleLog = repository.NewAsyncHealthLog(repository.NewValkeyHealthLog(vk), c.Writer)
		}
	}

	if cacheStore == nil {
		mem, err := repository.NewMemoryCacheStore(cfg.Cache.MaxEntries)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory cache: %w", err)
		}
		cacheStore = mem
	}
	if usageStore == nil {
		c.History = repository.NewGormUsageStore(db)
		usageStore = c.History
	}
	if sampleLog == nil {
		sampleLog = repository.NewMemoryHealthLog()
	}

	healthCfg := usecase.HealthConfig{
		Window:     time.Duration(cfg.Routing.HealthWindowMinutes) * time.Minute,
		MaxSamples: cfg.Routing.HealthMaxSamples,
	}

	c.Cache = usecase.NewCacheService(cacheStore)
	c.Circuit = usecase.NewCircuitBreaker(c.Settings, time.Now)
	c.Health = usecase.NewHealthMonitor(sampleLog, healthCfg, time.Now)
	c.Usage = usecase.NewUsageTracker(usageStore, c.Settings, loc, time.Now, c.Circuit, c.Health)
	c.Router = usecase.NewRouter(c.Registry, c.Circuit, c.Usage, c.Health, c.Settings, cfg.Routing.HealthMinSamples)

	logrus.Infof("[APP] Routing ready: cache=%s, budget timezone=%s, configured providers=%v",
		cacheStore.Name(), loc, c.Registry.Configured())
	return c, nil
}

// healthChecks probes the stores the service depends on.
func (c *components) healthChecks() []uiRest.HealthCheck {
	checks := []uiRest.HealthCheck{{
		Name: "database",
		Check: func(ctx context.Context) error {
			sqlDB, err := c.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if c.Valkey != nil {
		checks = append(checks, uiRest.HealthCheck{Name: "valkey", Check: c.Valkey.Ping})
	}
	return checks
}

func (c *components) Close() {
	if c.Writer != nil {
		c.Writer.Stop()
	}
	if c.Valkey != nil {
		c.Valkey.Close()
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
