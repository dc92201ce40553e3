package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/spf13/cast"

	"go-inventory-sales/internal/apperror"
	"go-inventory-sales/internal/middleware"
	"go-inventory-sales/internal/service"
)

type SaleHandler struct {
	sales   service.SaleService
	reports service.ReportService
}

func NewSaleHandler(sales service.SaleService, reports service.ReportService) *SaleHandler {
	return &SaleHandler{sales: sales, reports: reports}
}

// CreateSale records a sale and decrements stock atomically.
// POST /api/sales
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req service.RecordSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}

	identity, _ := middleware.CurrentIdentity(c)
	sale, err := h.sales.RecordSale(c.UserContext(), &req, identity)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(sale)
}

// GET /api/sales
func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	sales, err := h.sales.ListSales(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(sales)
}

// GET /api/sales/:id
func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID("sale")
	}

	sale, err := h.sales.GetSale(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(sale)
}

// GetDailyStats aggregates sales per day.
// GET /api/sales/stats?days=N
func (h *SaleHandler) GetDailyStats(c *fiber.Ctx) error {
	days, err := queryInt(c, "days", service.DefaultStatsDays)
	if err != nil {
		return err
	}

	stats, err := h.reports.DailySales(c.UserContext(), days)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// queryInt reads an optional integer query parameter.
func queryInt(c *fiber.Ctx, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return 0, apperror.Validation("Query parameter '" + key + "' must be an integer")
	}
	return n, nil
}
