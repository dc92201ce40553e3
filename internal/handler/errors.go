package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"go-inventory-sales/internal/apperror"
)

// ErrorHandler renders every error returned by a handler or middleware as the
// JSON error payload. Internal details are only exposed outside production.
func ErrorHandler(log *zap.Logger, production bool, uploadMaxBytes int) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := toAppError(err, uploadMaxBytes)
		status := appErr.Kind.Status()

		body := fiber.Map{
			"error": appErr.Message,
			"kind":  appErr.Kind,
		}
		if appErr.Code != "" {
			body["code"] = appErr.Code
		}
		if appErr.Available != nil {
			body["available"] = *appErr.Available
		}
		if appErr.Retryable() {
			body["retryable"] = true
		}
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}

		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("kind", string(appErr.Kind)),
				zap.Error(err),
			)
			if !production && appErr.Err != nil {
				body["details"] = appErr.Err.Error()
			}
		}

		return c.Status(status).JSON(body)
	}
}

func toAppError(err error, uploadMaxBytes int) *apperror.Error {
	if appErr, ok := apperror.As(err); ok {
		return appErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			return apperror.NotFound("Route not found")
		case fiber.StatusRequestEntityTooLarge:
			return apperror.Validation(fmt.Sprintf("File too large. Maximum size is %dMB.", uploadMaxBytes/(1024*1024)))
		case fiber.StatusUnauthorized:
			return apperror.Authentication(apperror.CodeTokenInvalid, fiberErr.Message)
		case fiber.StatusForbidden:
			return apperror.Authorization(fiberErr.Message)
		case fiber.StatusConflict:
			return apperror.Conflict(fiberErr.Message)
		}
		if fiberErr.Code < fiber.StatusInternalServerError {
			return apperror.Validation(fiberErr.Message)
		}
		return apperror.Internal(err)
	}

	// Anything else reaching the boundary untranslated came from the datastore or a bug.
	translated, _ := apperror.As(apperror.FromDB(err))
	return translated
}

// NotFound answers requests that matched no route.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "Route not found",
		"kind":  apperror.KindNotFound,
		"path":  c.Path(),
	})
}

func invalidBody(err error) error {
	return apperror.Wrap(apperror.KindValidation, "Invalid JSON", err)
}

func invalidID(what string) error {
	return apperror.Validation(fmt.Sprintf("Invalid %s ID", what))
}
