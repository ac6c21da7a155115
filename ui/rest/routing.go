package rest

import (
	"errors"
	"time"

	"github.com/AzielCF/az-prospect/domains/routing"
	pkgError "github.com/AzielCF/az-prospect/pkg/error"
	"github.com/AzielCF/az-prospect/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Routing struct {
	Router  routing.IRouter
	Circuit routing.ICircuitBreaker
	Health  routing.IHealthMonitor
}

// OutcomeRequest is the body of POST /routing/outcomes/:provider.
// Canceled reports a call the client abandoned: it counts against the budget only.
type OutcomeRequest struct {
	Success   bool   `json:"success"`
	Canceled  bool   `json:"canceled"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error"`
}

type usageResponse struct {
	Usage              routing.UsageSummary `json:"usage"`
	ExaFallbackAllowed bool                 `json:"exa_fallback_allowed"`
}

func InitRestRouting(app fiber.Router, router routing.IRouter, circuit routing.ICircuitBreaker, health routing.IHealthMonitor) Routing {
	rest := Routing{Router: router, Circuit: circuit, Health: health}
	app.Get("/routing/usage", rest.GetUsage)
	app.Get("/routing/health", rest.GetHealth)
	app.Get("/routing/circuits", rest.GetCircuits)
	app.Post("/routing/circuits/:provider/reset", rest.ResetCircuit)
	app.Get("/routing/decide/:task", rest.Decide)
	app.Post("/routing/outcomes/:provider", rest.RecordOutcome)

	return rest
}

func (handler *Routing) GetUsage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Usage summary retrieved",
		Results: usageResponse{
			Usage:              handler.Router.GetUsageSummary(ctx),
			ExaFallbackAllowed: handler.Router.IsExaFallbackAllowed(ctx),
		},
	})
}

func (handler *Routing) GetHealth(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Health summary retrieved",
		Results: handler.Health.GetHealthSummary(c.UserContext()),
	})
}

func (handler *Routing) GetCircuits(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Circuit states retrieved",
		Results: handler.Circuit.Snapshots(),
	})
}

func (handler *Routing) ResetCircuit(c *fiber.Ctx) error {
	provider := parseProviderParam(c)
	handler.Circuit.ResetCircuit(provider)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Circuit reset for " + provider.String(),
		Results: handler.Circuit.State(provider),
	})
}

// Decide is a dry run: it reports what the router would pick without recording usage
// or claiming a half-open trial.
func (handler *Routing) Decide(c *fiber.Ctx) error {
	task, err := routing.ParseTaskKind(c.Params("task"))
	if err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError(err.Error() + ": " + c.Params("task")))
	}

	decision := handler.Router.Decide(c.UserContext(), task)
	message := "Provider selected"
	if !decision.Found() {
		message = "No provider available"
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: decision,
	})
}

func (handler *Routing) RecordOutcome(c *fiber.Ctx) error {
	provider := parseProviderParam(c)

	var request OutcomeRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}
	if request.LatencyMs < 0 {
		utils.PanicIfNeeded(pkgError.ValidationError("latency_ms: must be no less than 0"))
	}

	outcome := routing.Outcome{
		Success:  request.Success && !request.Canceled,
		Canceled: request.Canceled,
		Latency:  time.Duration(request.LatencyMs) * time.Millisecond,
	}
	if !request.Success && request.Error != "" {
		outcome.Err = errors.New(request.Error)
	}
	ctx := c.UserContext()
	handler.Router.RecordOutcome(ctx, provider, outcome)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Outcome recorded for " + provider.String(),
		Results: handler.Router.GetUsageSummary(ctx)[provider],
	})
}

func parseProviderParam(c *fiber.Ctx) routing.Provider {
	provider, err := routing.ParseProvider(c.Params("provider"))
	if err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError(err.Error() + ": " + c.Params("provider")))
	}
	return provider
}
