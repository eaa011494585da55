package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog snapshot checkout reads prices and stock from.
// The catalog itself is owned by another service; this table is a read model.
type Product struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name      string          `json:"name" validate:"required,min=3,max=100"`
	SKU       string          `json:"sku" gorm:"type:varchar(64)"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Stock     int             `json:"stock" validate:"gte=0"`
	WeightKg  decimal.Decimal `json:"weight_kg" gorm:"type:decimal(8,3)"` // shipping weight per unit
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
