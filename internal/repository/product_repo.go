package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-inventory-sales/internal/model"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	Updates(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindLowStock(ctx context.Context) ([]model.Product, error)
	CategoryStats(ctx context.Context) ([]CategoryStat, error)
	LockByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error)

	// WithTx binds the repository to an open transaction.
	WithTx(tx *gorm.DB) ProductRepository
}

// CategoryStat aggregates the products of one category.
type CategoryStat struct {
	Category      string          `json:"category"`
	TotalProducts int64           `json:"total_products"`
	TotalStock    int64           `json:"total_stock"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	products := []model.Product{}
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepo{tx}
}

// Updates writes only the given columns; updated_at is refreshed by GORM.
func (r *productRepo) Updates(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the product; its sales go with it through the FK cascade.
func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepo) FindLowStock(ctx context.Context) ([]model.Product, error) {
	products := []model.Product{}
	err := r.db.WithContext(ctx).
		Where("stock <= reorder_level").
		Order("stock ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) CategoryStats(ctx context.Context) ([]CategoryStat, error) {
	stats := []CategoryStat{}
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Select(`
			COALESCE(category, '') AS category,
			COUNT(*) AS total_products,
			COALESCE(SUM(stock), 0) AS total_stock,
			COALESCE(AVG(price), 0) AS avg_price
		`).
		Group("category").
		Order("total_products DESC").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	for i := range stats {
		stats[i].AvgPrice = stats[i].AvgPrice.Round(2)
	}
	return stats, nil
}

// LockByID reads the product row with a row lock (SELECT ... FOR UPDATE).
// Dialects without row locks ignore the clause and rely on writer serialization.
func (r *productRepo) LockByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementStock subtracts quantity only while enough stock remains.
// It reports false when no row qualified.
func (r *productRepo) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		UpdateColumns(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
