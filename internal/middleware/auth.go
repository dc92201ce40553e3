package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"go-inventory-sales/internal/apperror"
	"go-inventory-sales/internal/model"
	"go-inventory-sales/internal/service"
)

const identityKey = "identity"

// RequireAuth validates the bearer token against the stored account and stores the caller identity in the context.
func RequireAuth(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperror.Authentication(apperror.CodeTokenMissing, "Access token required")
		}

		// Extract token from "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return apperror.Authentication(apperror.CodeTokenInvalid, "Invalid authorization format. Use: Bearer <token>")
		}

		identity, err := auth.ValidateToken(c.UserContext(), parts[1])
		if err != nil {
			return err
		}

		c.Locals(identityKey, *identity)
		return c.Next()
	}
}

// RequireRole rejects callers whose role does not satisfy the required one.
func RequireRole(required model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := CurrentIdentity(c)
		if !ok {
			return apperror.Authentication(apperror.CodeTokenMissing, "Access token required")
		}
		if err := service.Authorize(identity, required); err != nil {
			return err
		}
		return c.Next()
	}
}

// CurrentIdentity returns the identity stored by RequireAuth.
func CurrentIdentity(c *fiber.Ctx) (service.Identity, bool) {
	identity, ok := c.Locals(identityKey).(service.Identity)
	return identity, ok
}
