package rest

import (
	"context"
	"time"

	"github.com/AzielCF/az-prospect/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one backing dependency (database, valkey).
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type dependencyStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type Health struct {
	Version string
	Checks  []HealthCheck
}

// InitRestHealth registers the liveness probe. It is mounted outside the authenticated API group.
func InitRestHealth(app fiber.Router, version string, checks ...HealthCheck) Health {
	handler := Health{Version: version, Checks: checks}
	app.Get("/health", handler.GetStatus)

	return handler
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthCheckTimeout)
	defer cancel()

	healthy := true
	statuses := make([]dependencyStatus, 0, len(h.Checks))
	for _, check := range h.Checks {
		status := dependencyStatus{Name: check.Name, Status: "ok"}
		if err := check.Check(ctx); err != nil {
			healthy = false
			status.Status = "down"
			status.Error = err.Error()
			logrus.WithError(err).Warnf("[REST] Health check %s failed", check.Name)
		}
		statuses = append(statuses, status)
	}

	results := fiber.Map{"version": h.Version, "dependencies": statuses}
	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(utils.ResponseData{
			Status:  fiber.StatusServiceUnavailable,
			Code:    "SERVICE_UNAVAILABLE",
			Message: "One or more dependencies are down",
			Results: results,
		})
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Service healthy",
		Results: results,
	})
}
