package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-inventory-sales/internal/model"
)

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	FindAll(ctx context.Context) ([]model.SaleView, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.SaleView, error)
	DailyStats(ctx context.Context, days int) ([]DailySalesStat, error)
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
	WithTx(tx *gorm.DB) SaleRepository
}

// DailySalesStat aggregates the sales of one calendar day.
type DailySalesStat struct {
	Date         string          `json:"date"`
	TotalSales   int64           `json:"total_sales"`
	Revenue      decimal.Decimal `json:"revenue"`
	AvgSaleValue decimal.Decimal `json:"avg_sale_value"`
}

// DashboardStats is the overview rendered on the dashboard
type DashboardStats struct {
	TotalProducts  int64           `json:"total_products"`
	LowStockCount  int64           `json:"low_stock_count"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalSales     int64           `json:"total_sales"`
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

func (r *saleRepo) WithTx(tx *gorm.DB) SaleRepository {
	return &saleRepo{tx}
}

func (r *saleRepo) Create(ctx context.Context, sale *model.Sale) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(sale).Error
}

func (r *saleRepo) views(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("sales").
		Select("sales.*, products.name AS product_name, COALESCE(products.category, '') AS product_category").
		Joins("JOIN products ON products.id = sales.product_id")
}

func (r *saleRepo) FindAll(ctx context.Context) ([]model.SaleView, error) {
	sales := []model.SaleView{}
	err := r.views(ctx).
		Order("sales.created_at DESC").
		Scan(&sales).Error
	return sales, err
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.SaleView, error) {
	var sales []model.SaleView
	if err := r.views(ctx).Where("sales.id = ?", id).Limit(1).Scan(&sales).Error; err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &sales[0], nil
}

// DailyStats groups sales by calendar date, newest first.
func (r *saleRepo) DailyStats(ctx context.Context, days int) ([]DailySalesStat, error) {
	stats := []DailySalesStat{}
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select(`
			CAST(DATE(sale_date) AS TEXT) AS date,
			COUNT(*) AS total_sales,
			COALESCE(SUM(total_amount), 0) AS revenue,
			COALESCE(AVG(total_amount), 0) AS avg_sale_value
		`).
		Group("DATE(sale_date)").
		Order("date DESC").
		Limit(days).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	for i := range stats {
		stats[i].AvgSaleValue = stats[i].AvgSaleValue.Round(2)
	}
	return stats, nil
}

func (r *saleRepo) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Product{}).Where("stock <= reorder_level").Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}
	var sum struct{ Total decimal.Decimal }
	if err := db.Model(&model.Product{}).Select("COALESCE(SUM(stock * price), 0) AS total").Scan(&sum).Error; err != nil {
		return nil, err
	}
	stats.TotalValuation = sum.Total.Round(2)

	sum.Total = decimal.Zero
	if err := db.Model(&model.Sale{}).Select("COALESCE(SUM(total_amount), 0) AS total").Scan(&sum).Error; err != nil {
		return nil, err
	}
	stats.TotalRevenue = sum.Total.Round(2)
	if err := db.Model(&model.Sale{}).Count(&stats.TotalSales).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}
