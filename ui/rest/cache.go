package rest

import (
	"net/url"

	domainCache "github.com/AzielCF/az-prospect/domains/cache"
	pkgError "github.com/AzielCF/az-prospect/pkg/error"
	"github.com/AzielCF/az-prospect/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Cache struct {
	Service domainCache.ICacheUsecase
}

func InitRestCache(app fiber.Router, service domainCache.ICacheUsecase) Cache {
	rest := Cache{Service: service}
	app.Get("/cache/stats", rest.GetStats)
	app.Post("/cache/clear", rest.ClearCache)
	app.Delete("/cache/keys/:key", rest.DeleteKey)

	return rest
}

func (handler *Cache) GetStats(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache stats retrieved",
		Results: handler.Service.GetStats(c.UserContext()),
	})
}

func (handler *Cache) ClearCache(c *fiber.Ctx) error {
	handler.Service.Clear(c.UserContext())

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache cleared successfully",
	})
}

func (handler *Cache) DeleteKey(c *fiber.Ctx) error {
	key, err := url.PathUnescape(c.Params("key"))
	if err != nil || key == "" {
		utils.PanicIfNeeded(pkgError.ValidationError("key: invalid cache key"))
	}
	handler.Service.Delete(c.UserContext(), key)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache key deleted",
		Results: key,
	})
}
