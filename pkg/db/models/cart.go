package models

import "time"

// Cart is the per-customer line-item aggregate. CustomerID is an opaque
// caller-supplied identity ("guest" is a valid shared identity).
type Cart struct {
	ID         uint       `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerID string     `gorm:"column:customer_id;not null;index"`
	Lines      []CartLine `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
