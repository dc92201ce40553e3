package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"go-inventory-sales/internal/middleware"
	"go-inventory-sales/internal/service"
)

type ProductHandler struct {
	service service.ProductService
}

func NewProductHandler(s service.ProductService) *ProductHandler {
	return &ProductHandler{service: s}
}

func productID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, invalidID("product")
	}
	return id, nil
}

// GetProducts lists the catalog, newest first.
// GET /api/products
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(products)
}

// GET /api/products/:id
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}

	product, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(product)
}

// POST /api/products
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}

	identity, _ := middleware.CurrentIdentity(c)
	product, err := h.service.Create(c.UserContext(), &req, identity)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// UpdateProduct applies a partial update; absent fields are left unchanged.
// PUT /api/products/:id
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}

	var req service.UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}

	identity, _ := middleware.CurrentIdentity(c)
	product, err := h.service.Update(c.UserContext(), id, &req, identity)
	if err != nil {
		return err
	}
	return c.JSON(product)
}

// DELETE /api/products/:id
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}

	identity, _ := middleware.CurrentIdentity(c)
	if err := h.service.Delete(c.UserContext(), id, identity); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Product deleted successfully"})
}

// GET /api/products/alerts/low-stock
func (h *ProductHandler) GetLowStock(c *fiber.Ctx) error {
	products, err := h.service.LowStock(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(products)
}

// GET /api/products/stats/by-category
func (h *ProductHandler) GetCategoryStats(c *fiber.Ctx) error {
	stats, err := h.service.CategoryStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}
