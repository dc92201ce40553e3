package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go-inventory-sales/internal/apperror"
	"go-inventory-sales/internal/model"
	"go-inventory-sales/internal/repository"
	"go-inventory-sales/internal/ws"
)

type ProductService interface {
	List(ctx context.Context) ([]model.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Product, error)
	Create(ctx context.Context, req *CreateProductRequest, actor Identity) (*model.Product, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateProductRequest, actor Identity) (*model.Product, error)
	Delete(ctx context.Context, id uuid.UUID, actor Identity) error
	LowStock(ctx context.Context) ([]model.Product, error)
	CategoryStats(ctx context.Context) ([]repository.CategoryStat, error)
}

type CreateProductRequest struct {
	Name         string           `json:"name" validate:"required,max=255"`
	SKU          *string          `json:"sku" validate:"omitempty,max=100"`
	Category     string           `json:"category" validate:"max=100"`
	Description  string           `json:"description"`
	Price        *decimal.Decimal `json:"price" validate:"required,gte=0"`
	Stock        *int             `json:"stock" validate:"omitempty,gte=0"`
	ReorderLevel *int             `json:"reorder_level" validate:"omitempty,gte=0"`
	Supplier     string           `json:"supplier" validate:"max=255"`
}

// UpdateProductRequest is a partial update; nil fields are left untouched.
type UpdateProductRequest struct {
	Name         *string          `json:"name" validate:"omitempty,min=1,max=255"`
	SKU          *string          `json:"sku" validate:"omitempty,max=100"`
	Category     *string          `json:"category" validate:"omitempty,max=100"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	Stock        *int             `json:"stock" validate:"omitempty,gte=0"`
	ReorderLevel *int             `json:"reorder_level" validate:"omitempty,gte=0"`
	Supplier     *string          `json:"supplier" validate:"omitempty,max=255"`
}

type productService struct {
	productRepo repository.ProductRepository
	db          *gorm.DB
	events      EventPublisher
}

func NewProductService(pRepo repository.ProductRepository, db *gorm.DB, events EventPublisher) ProductService {
	return &productService{
		productRepo: pRepo,
		db:          db,
		events:      publisherOrNoop(events),
	}
}

func (s *productService) List(ctx context.Context) ([]model.Product, error) {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	return products, nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "Product not found")
	}
	return product, nil
}

func (s *productService) Create(ctx context.Context, req *CreateProductRequest, actor Identity) (*model.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = normalizeSKU(req.SKU)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if req.SKU != nil {
		if _, err := s.productRepo.FindBySKU(ctx, *req.SKU); err == nil {
			return nil, apperror.Conflict("SKU already exists")
		}
	}

	product := &model.Product{
		Name:         req.Name,
		SKU:          req.SKU,
		Category:     strings.TrimSpace(req.Category),
		Description:  req.Description,
		Price:        req.Price.Round(2),
		ReorderLevel: model.DefaultReorderLevel,
		Supplier:     req.Supplier,
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.ReorderLevel != nil {
		product.ReorderLevel = *req.ReorderLevel
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, skuConflict(err)
	}

	s.events.Publish(ws.Event{
		Type:    ws.EventProductCreated,
		Data:    product,
		Actor:   actor.Username,
		Message: fmt.Sprintf("%s created product '%s'", actor.Username, product.Name),
	})
	return product, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, req *UpdateProductRequest, actor Identity) (*model.Product, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	fields := req.fields()
	var updated *model.Product

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.productRepo.WithTx(tx)

		if len(fields) > 0 {
			if err := products.Updates(ctx, id, fields); err != nil {
				return err
			}
		}

		product, err := products.FindByID(ctx, id)
		if err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		if apperror.Is(apperror.FromDB(err), apperror.KindConflict) {
			return nil, apperror.Conflict("SKU already exists")
		}
		return nil, notFoundAs(err, "Product not found")
	}

	s.events.Publish(ws.Event{
		Type:    ws.EventProductUpdated,
		Data:    updated,
		Actor:   actor.Username,
		Message: fmt.Sprintf("%s updated product '%s'", actor.Username, updated.Name),
	})
	if _, stockChanged := fields["stock"]; stockChanged && updated.IsLowStock() {
		s.events.Publish(lowStockEvent(updated))
	}
	return updated, nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID, actor Identity) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return notFoundAs(err, "Product not found")
	}

	s.events.Publish(ws.Event{
		Type:  ws.EventProductDeleted,
		Data:  map[string]interface{}{"id": id},
		Actor: actor.Username,
	})
	return nil
}

func (s *productService) LowStock(ctx context.Context) ([]model.Product, error) {
	products, err := s.productRepo.FindLowStock(ctx)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	return products, nil
}

func (s *productService) CategoryStats(ctx context.Context) ([]repository.CategoryStat, error) {
	stats, err := s.productRepo.CategoryStats(ctx)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	return stats, nil
}

// fields maps the supplied values onto column names.
func (r *UpdateProductRequest) fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if r.Name != nil {
		fields["name"] = *r.Name
	}
	if r.SKU != nil {
		// an empty SKU clears it
		if sku := normalizeSKU(r.SKU); sku != nil {
			fields["sku"] = *sku
		} else {
			fields["sku"] = gorm.Expr("NULL")
		}
	}
	if r.Category != nil {
		fields["category"] = strings.TrimSpace(*r.Category)
	}
	if r.Description != nil {
		fields["description"] = *r.Description
	}
	if r.Price != nil {
		fields["price"] = r.Price.Round(2)
	}
	if r.Stock != nil {
		fields["stock"] = *r.Stock
	}
	if r.ReorderLevel != nil {
		fields["reorder_level"] = *r.ReorderLevel
	}
	if r.Supplier != nil {
		fields["supplier"] = *r.Supplier
	}
	return fields
}

func normalizeSKU(sku *string) *string {
	if sku == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*sku)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func skuConflict(err error) error {
	err = apperror.FromDB(err)
	if apperror.Is(err, apperror.KindConflict) {
		return apperror.Conflict("SKU already exists")
	}
	return err
}

func lowStockEvent(p *model.Product) ws.Event {
	return ws.Event{
		Type: ws.EventLowStock,
		Data: map[string]interface{}{
			"id":            p.ID,
			"name":          p.Name,
			"stock":         p.Stock,
			"reorder_level": p.ReorderLevel,
		},
		Message: fmt.Sprintf("'%s' is low on stock (%d left)", p.Name, p.Stock),
	}
}
