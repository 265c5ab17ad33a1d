package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine holds one SKU's quantity plus the name/price snapshot captured at
// the time of addition. The (cart_id, sku) unique index backs the
// one-line-per-SKU invariant.
type CartLine struct {
	ID        uint            `gorm:"column:id;primaryKey;autoIncrement"`
	CartID    uint            `gorm:"column:cart_id;not null;uniqueIndex:ux_cart_lines_cart_sku"`
	SKU       string          `gorm:"column:sku;not null;uniqueIndex:ux_cart_lines_cart_sku"`
	Name      string          `gorm:"column:name;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
