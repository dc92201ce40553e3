package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-inventory-sales/internal/apperror"
	"go-inventory-sales/internal/model"
	"go-inventory-sales/internal/repository"
	"go-inventory-sales/internal/ws"
)

// maxTxAttempts bounds replays of a sale that lost a serialization race.
const maxTxAttempts = 3

type SaleService interface {
	RecordSale(ctx context.Context, req *RecordSaleRequest, actor Identity) (*model.Sale, error)
	ListSales(ctx context.Context) ([]model.SaleView, error)
	GetSale(ctx context.Context, id uuid.UUID) (*model.SaleView, error)
}

type RecordSaleRequest struct {
	ProductID    uuid.UUID        `json:"product_id" validate:"uuid_required"`
	QuantitySold int              `json:"quantity_sold" validate:"gt=0"`
	SalePrice    *decimal.Decimal `json:"sale_price" validate:"required,gte=0"`
	// SaleDate accepts RFC 3339 timestamps or plain dates; empty means now.
	SaleDate      string `json:"sale_date"`
	CustomerName  string `json:"customer_name" validate:"max=255"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email,max=255"`
	PaymentMethod string `json:"payment_method" validate:"max=50"`
	Notes         string `json:"notes"`
}

type saleService struct {
	productRepo repository.ProductRepository
	saleRepo    repository.SaleRepository
	db          *gorm.DB
	events      EventPublisher
	now         func() time.Time
}

func NewSaleService(pRepo repository.ProductRepository, sRepo repository.SaleRepository, db *gorm.DB, events EventPublisher) SaleService {
	return &saleService{
		productRepo: pRepo,
		saleRepo:    sRepo,
		db:          db,
		events:      publisherOrNoop(events),
		now:         time.Now,
	}
}

// RecordSale checks stock, inserts the sale and decrements stock in one transaction.
// Either all of it is visible afterwards or none of it.
func (s *saleService) RecordSale(ctx context.Context, req *RecordSaleRequest, actor Identity) (*model.Sale, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	saleDate, err := s.parseSaleDate(req.SaleDate)
	if err != nil {
		return nil, err
	}

	var (
		sale    *model.Sale
		product *model.Product
	)
	for attempt := 1; ; attempt++ {
		sale, product, err = s.recordOnce(ctx, req, saleDate, actor)
		if err == nil || !apperror.IsTxConflict(err) || attempt >= maxTxAttempts {
			break
		}
		zap.L().Warn("sale transaction conflict, retrying",
			zap.Int("attempt", attempt),
			zap.String("product_id", req.ProductID.String()),
			zap.Error(err),
		)
	}
	if err != nil {
		return nil, apperror.FromDB(err)
	}

	s.events.Publish(ws.Event{
		Type: ws.EventSaleRecorded,
		Data: map[string]interface{}{
			"sale":         sale,
			"product_id":   product.ID,
			"product_name": product.Name,
			"new_stock":    product.Stock,
		},
		Actor:   actor.Username,
		Message: fmt.Sprintf("%s sold %d x '%s'", actor.Username, sale.QuantitySold, product.Name),
	})
	if product.IsLowStock() {
		s.events.Publish(lowStockEvent(product))
	}
	return sale, nil
}

func (s *saleService) recordOnce(ctx context.Context, req *RecordSaleRequest, saleDate time.Time, actor Identity) (*model.Sale, *model.Product, error) {
	var (
		sale    *model.Sale
		product *model.Product
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.productRepo.WithTx(tx)
		sales := s.saleRepo.WithTx(tx)

		// 1. Lock the product row
		p, err := products.LockByID(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Product not found")
			}
			return err
		}

		// 2. Stock check before any write
		if req.QuantitySold > p.Stock {
			return apperror.InsufficientStock(p.Stock)
		}

		// 3. Ledger entry
		record := &model.Sale{
			ProductID:     p.ID,
			QuantitySold:  req.QuantitySold,
			SalePrice:     req.SalePrice.Round(2),
			SaleDate:      saleDate,
			CustomerName:  strings.TrimSpace(req.CustomerName),
			CustomerEmail: strings.TrimSpace(req.CustomerEmail),
			PaymentMethod: strings.TrimSpace(req.PaymentMethod),
			Notes:         req.Notes,
		}
		record.TotalAmount = model.SaleTotal(record.QuantitySold, record.SalePrice)
		if actor.UserID != uuid.Nil {
			actorID := actor.UserID
			record.CreatedByID = &actorID
		}
		if err := sales.Create(ctx, record); err != nil {
			return err
		}

		// 4. Conditional decrement, guards isolation levels weaker than the row lock
		ok, err := products.DecrementStock(ctx, p.ID, req.QuantitySold)
		if err != nil {
			return err
		}
		if !ok {
			current, err := products.FindByID(ctx, p.ID)
			if err != nil {
				return err
			}
			return apperror.InsufficientStock(current.Stock)
		}

		p.Stock -= req.QuantitySold
		sale, product = record, p
		return nil
	})
	return sale, product, err
}

func (s *saleService) ListSales(ctx context.Context) ([]model.SaleView, error) {
	sales, err := s.saleRepo.FindAll(ctx)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	return sales, nil
}

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*model.SaleView, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "Sale not found")
	}
	return sale, nil
}

func (s *saleService) parseSaleDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.now().UTC(), nil
	}
	t, err := cast.ToTimeInDefaultLocationE(raw, time.UTC)
	if err != nil {
		return time.Time{}, apperror.Validation(
			"Validation failed: Field 'sale_date' is not a valid date",
			apperror.FieldError{Field: "sale_date", Tag: "datetime"},
		)
	}
	return t.UTC(), nil
}
