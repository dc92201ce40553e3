package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"go-inventory-sales/internal/middleware"
	"go-inventory-sales/internal/service"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func userID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, invalidID("user")
	}
	return id, nil
}

// GET /api/users
func (h *UserHandler) GetUsers(c *fiber.Ctx) error {
	users, err := h.userService.GetAllUsers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(users)
}

// GET /api/users/:id
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}

	user, err := h.userService.GetUserByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// UpdateUserRole handles role assignment
// PUT /api/users/:id/role
func (h *UserHandler) UpdateUserRole(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}

	var req service.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}

	identity, _ := middleware.CurrentIdentity(c)
	user, err := h.userService.UpdateUserRole(c.UserContext(), id, &req, identity)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// DELETE /api/users/:id
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}

	identity, _ := middleware.CurrentIdentity(c)
	if err := h.userService.DeleteUser(c.UserContext(), id, identity); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}
