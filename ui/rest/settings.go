package rest

import (
	settingsDomain "github.com/AzielCF/az-prospect/core/settings/domain"
	"github.com/AzielCF/az-prospect/pkg/utils"
	"github.com/AzielCF/az-prospect/validations"
	"github.com/gofiber/fiber/v2"
)

type Settings struct {
	Service settingsDomain.ISettingsService
}

type settingsResponse struct {
	Effective settingsDomain.RoutingSettings `json:"effective"`
	Defaults  settingsDomain.RoutingSettings `json:"defaults"`
}

func InitRestSettings(app fiber.Router, service settingsDomain.ISettingsService) Settings {
	rest := Settings{Service: service}
	app.Get("/routing/settings", rest.GetSettings)
	app.Put("/routing/settings", rest.UpdateSettings)

	return rest
}

func (handler *Settings) GetSettings(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Routing settings retrieved",
		Results: handler.view(c),
	})
}

func (handler *Settings) UpdateSettings(c *fiber.Ctx) error {
	var request settingsDomain.RoutingSettingsUpdate
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	err := validations.ValidateRoutingSettings(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	err = handler.Service.Update(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Routing settings updated successfully",
		Results: handler.view(c),
	})
}

func (handler *Settings) view(c *fiber.Ctx) settingsResponse {
	return settingsResponse{
		Effective: handler.Service.Snapshot(c.UserContext()),
		Defaults:  handler.Service.Defaults(),
	}
}
