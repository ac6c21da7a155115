package middleware

import (
	"errors"
	"fmt"

	pkgError "github.com/AzielCF/az-prospect/pkg/error"
	"github.com/AzielCF/az-prospect/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Recovery turns a panic raised by utils.PanicIfNeeded into a ResponseData error body.
// Errors implementing pkgError.GenericError (also when wrapped) keep their own status and code.
func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			res := utils.ResponseData{
				Status:  fiber.StatusInternalServerError,
				Code:    "INTERNAL_SERVER_ERROR",
				Message: fmt.Sprintf("%v", recovered),
			}

			var generic pkgError.GenericError
			if err, ok := recovered.(error); ok && errors.As(err, &generic) {
				res.Status = generic.StatusCode()
				res.Code = generic.ErrCode()
				res.Message = generic.Error()
			}

			entry := logrus.WithFields(logrus.Fields{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"status": res.Status,
			})
			if res.Status >= fiber.StatusInternalServerError {
				entry.Errorf("[REST] Panic recovered: %v", recovered)
			} else {
				entry.Warnf("[REST] Request rejected: %s", res.Message)
			}

			_ = ctx.Status(res.Status).JSON(res)
		}()

		return ctx.Next()
	}
}
