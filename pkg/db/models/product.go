package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents an active storefront listing. The numeric catalog key is
// the surrogate ID; SKU is the stable external product identity.
type Product struct {
	ID          uint            `gorm:"column:id;primaryKey;autoIncrement"`
	SKU         string          `gorm:"column:sku;not null;uniqueIndex"`
	Name        string          `gorm:"column:name;not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
