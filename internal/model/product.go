package model

import "github.com/shopspring/decimal"

// DefaultReorderLevel is the low-stock threshold used when none is supplied.
const DefaultReorderLevel = 10

type Product struct {
	BaseModel
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	SKU          *string         `gorm:"type:varchar(100);uniqueIndex" json:"sku"`
	Category     string          `gorm:"type:varchar(100);index;not null;default:''" json:"category"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	Stock        int             `gorm:"not null;default:0;index" json:"stock"`
	ReorderLevel int             `gorm:"not null" json:"reorder_level"`
	Supplier     string          `gorm:"type:varchar(255)" json:"supplier"`
}

// IsLowStock reports whether the product is at or below its reorder level.
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.ReorderLevel
}
