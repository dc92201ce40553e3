package handler

import (
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"go-inventory-sales/internal/apperror"
	"go-inventory-sales/internal/middleware"
	"go-inventory-sales/internal/service"
)

type UploadHandler struct {
	service  service.UploadService
	maxBytes int
}

func NewUploadHandler(s service.UploadService, maxBytes int) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = service.DefaultUploadMaxBytes
	}
	return &UploadHandler{service: s, maxBytes: maxBytes}
}

// Upload parses a CSV or Excel file. With ?import=products the rows are
// also created as products, which requires the owner role.
// POST /api/upload
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return apperror.Validation("No file uploaded")
	}
	if header.Size > int64(h.maxBytes) {
		return apperror.Validation(fmt.Sprintf("File too large. Maximum size is %dMB.", h.maxBytes/(1024*1024)))
	}

	f, err := header.Open()
	if err != nil {
		return apperror.Internal(errors.Wrap(err, "open uploaded file"))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(h.maxBytes)+1))
	if err != nil {
		return apperror.Internal(errors.Wrap(err, "read uploaded file"))
	}

	identity, _ := middleware.CurrentIdentity(c)
	result, err := h.service.Process(c.UserContext(), service.UploadFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}, identity, c.Query("import") == "products")
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// GetHistory lists recent uploads.
// GET /api/upload/history?limit=N
func (h *UploadHandler) GetHistory(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}

	history, err := h.service.History(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(history)
}
