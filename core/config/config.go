package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/AzielCF/az-prospect/domains/routing"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App      AppConfig
	Paths    PathsConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Routing  RoutingConfig
	APIKeys  APIKeysConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	CorsAllowedOrigins []string
}

type PathsConfig struct {
	BaseDir  string
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

type CacheConfig struct {
	MaxEntries int
}

type RoutingConfig struct {
	FailureThreshold    int
	CooldownSeconds     int
	HealthWindowMinutes int
	HealthMaxSamples    int
	HealthMinSamples    int
	ExaReservePct       int
	BudgetTimezone      string
	// Budgets holds the daily ceiling per provider; routing.Unlimited means no ceiling.
	Budgets map[routing.Provider]int
}

// APIKeysConfig holds the credential of each upstream provider. An empty key means not configured.
type APIKeysConfig struct {
	Keys map[routing.Provider]string
}

// Get returns the key configured for p.
func (a APIKeysConfig) Get(p routing.Provider) string {
	if a.Keys == nil {
		return ""
	}
	return a.Keys[p]
}

const (
	DefaultFailureThreshold    = 3
	DefaultCooldownSeconds     = 300
	DefaultHealthWindowMinutes = 15
	DefaultHealthMaxSamples    = 200
	DefaultHealthMinSamples    = 5
	DefaultExaReservePct       = 20
	// DefaultBudget applies to any provider without a configured ceiling.
	DefaultBudget = 100
)

// DefaultBudgets are the daily ceilings used when neither env nor admin settings override them.
var DefaultBudgets = map[routing.Provider]int{
	routing.ProviderExa:        1000,
	routing.ProviderSerper:     2500,
	routing.ProviderParallel:   500,
	routing.ProviderApollo:     600,
	routing.ProviderClearout:   1000,
	routing.ProviderFreshsales: routing.Unlimited,
	routing.ProviderHubSpot:    routing.Unlimited,
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	debug := getEnvBool("APP_DEBUG", false) || getEnvBool("DEBUG", false)

	var basicAuth []string
	if v := os.Getenv("APP_BASIC_AUTH"); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := os.Getenv("APP_CORS_ALLOWED_ORIGINS"); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v0.4.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              debug,
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		CorsAllowedOrigins: corsOrigins,
	}
	if v := os.Getenv("APP_TRUSTED_PROXIES"); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Storages: baseDir,
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "prospect.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "prospect:"),
	}

	routingCfg := RoutingConfig{
		FailureThreshold:    getEnvPositiveInt("CIRCUIT_FAILURE_THRESHOLD", DefaultFailureThreshold),
		CooldownSeconds:     getEnvPositiveInt("CIRCUIT_COOLDOWN_SECONDS", DefaultCooldownSeconds),
		HealthWindowMinutes: getEnvPositiveInt("HEALTH_WINDOW_MINUTES", DefaultHealthWindowMinutes),
		HealthMaxSamples:    getEnvPositiveInt("HEALTH_MAX_SAMPLES", DefaultHealthMaxSamples),
		HealthMinSamples:    getEnvPositiveInt("HEALTH_MIN_SAMPLES", DefaultHealthMinSamples),
		ExaReservePct:       getEnvPercent("EXA_FALLBACK_RESERVE_PCT", DefaultExaReservePct),
		BudgetTimezone:      getEnv("BUDGET_TIMEZONE", ""),
		Budgets:             make(map[routing.Provider]int, len(routing.AllProviders)),
	}

	keys := make(map[routing.Provider]string, len(routing.AllProviders))
	for _, p := range routing.AllProviders {
		envName := strings.ToUpper(string(p))
		fallback, ok := DefaultBudgets[p]
		if !ok {
			fallback = DefaultBudget
		}
		routingCfg.Budgets[p] = getEnvBudget("BUDGET_"+envName, fallback)
		keys[p] = strings.TrimSpace(getEnv(envName+"_API_KEY", ""))
	}

	cfg := &Config{
		App:      appCfg,
		Paths:    pathsCfg,
		Database: dbCfg,
		Cache:    CacheConfig{MaxEntries: getEnvPositiveInt("CACHE_MAX_ENTRIES", 10000)},
		Routing:  routingCfg,
		APIKeys:  APIKeysConfig{Keys: keys},
	}

	Global = cfg
	return cfg, nil
}

// BudgetFor returns the configured daily ceiling for p, or DefaultBudget when none is set.
func (r RoutingConfig) BudgetFor(p routing.Provider) int {
	if limit, ok := r.Budgets[p]; ok {
		return limit
	}
	return DefaultBudget
}
