package handler

import (
	"github.com/gofiber/fiber/v2"

	"go-inventory-sales/internal/model"
)

type roleInfo struct {
	Code        model.Role `json:"code"`
	Description string     `json:"description"`
}

var roleCatalog = []roleInfo{
	{Code: model.RoleOwner, Description: "Full access, including catalog changes, imports and user administration"},
	{Code: model.RoleStaff, Description: "Records sales and reads catalog and reports"},
}

// GetRoles returns all available roles
// GET /api/roles
func GetRoles(c *fiber.Ctx) error {
	return c.JSON(roleCatalog)
}
