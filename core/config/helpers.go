package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// GetAllSettings returns a map of the routing settings currently loaded in memory.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	budgets := make(map[string]int, len(Global.Routing.Budgets))
	for p, limit := range Global.Routing.Budgets {
		budgets[string(p)] = limit
	}
	return map[string]any{
		"circuit_failure_threshold": Global.Routing.FailureThreshold,
		"circuit_cooldown_seconds":  Global.Routing.CooldownSeconds,
		"health_window_minutes":     Global.Routing.HealthWindowMinutes,
		"health_max_samples":        Global.Routing.HealthMaxSamples,
		"health_min_samples":        Global.Routing.HealthMinSamples,
		"exa_fallback_reserve_pct":  Global.Routing.ExaReservePct,
		"budget_timezone":           Global.Routing.BudgetTimezone,
		"budgets":                   budgets,
		"valkey_enabled":            Global.Database.ValkeyEnabled,
		"app_debug":                 Global.App.Debug,
		"app_version":               Global.App.Version,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
		logrus.Warnf("[CONFIG] %s=%q is not an integer, using %d", key, v, fallback)
	}
	return fallback
}

func getEnvPositiveInt(key string, fallback int) int {
	n := getEnvInt(key, fallback)
	if n <= 0 {
		logrus.Warnf("[CONFIG] %s must be positive, using %d", key, fallback)
		return fallback
	}
	return n
}

func getEnvPercent(key string, fallback int) int {
	n := getEnvInt(key, fallback)
	if n < 0 || n > 100 {
		logrus.Warnf("[CONFIG] %s must be between 0 and 100, using %d", key, fallback)
		return fallback
	}
	return n
}

// getEnvBudget accepts a non-negative ceiling or -1 for unlimited.
func getEnvBudget(key string, fallback int) int {
	n := getEnvInt(key, fallback)
	if n < -1 {
		logrus.Warnf("[CONFIG] %s must be >= -1, using %d", key, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}
