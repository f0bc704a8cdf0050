package models

import (
	"github.com/shopspring/decimal"
)

// Product represents a product record.
// The name is unique across all products; the id is assigned by the database.
type Product struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"size:100;uniqueIndex:idx_products_name;not null"`
	Description string          `gorm:"size:200;not null;default:''"`
	Price       decimal.Decimal `gorm:"type:numeric;not null"`
	Qty         int             `gorm:"not null"`
}

func (p *Product) TableName() string {
	return "products"
}

// ProductFields holds the mutable columns of a product.
// Create and Update always write all of them together.
type ProductFields struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Qty         int
}
