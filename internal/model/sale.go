package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is one ledger entry. TotalAmount is a snapshot of QuantitySold * SalePrice
// taken at creation and never recomputed.
type Sale struct {
	BaseModel
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product       *Product        `gorm:"constraint:OnDelete:CASCADE" json:"product,omitempty"`
	QuantitySold  int             `gorm:"not null" json:"quantity_sold"`
	SalePrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"sale_price"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	SaleDate      time.Time       `gorm:"not null;index" json:"sale_date"`
	CustomerName  string          `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerEmail string          `gorm:"type:varchar(255)" json:"customer_email"`
	PaymentMethod string          `gorm:"type:varchar(50)" json:"payment_method"`
	Notes         string          `gorm:"type:text" json:"notes"`

	// User tracking
	CreatedByID *uuid.UUID `gorm:"column:created_by;type:uuid;index" json:"created_by"`
	CreatedBy   *User      `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL" json:"-"`
}

// SaleView is a sale joined with the product columns the sales table renders.
type SaleView struct {
	Sale
	ProductName     string `json:"product_name"`
	ProductCategory string `json:"category"`
}

// SaleTotal computes the denormalized total for a sale line.
func SaleTotal(quantity int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}
