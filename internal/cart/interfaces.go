package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/lukechats/retail-backend/pkg/db/models"
)

// CartRepository exposes persistence operations for carts and their lines.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindEarliestByCustomer(ctx context.Context, customerID string) (*models.Cart, error)
	FindEarliestByCustomerWithLines(ctx context.Context, customerID string) (*models.Cart, error)
	Create(ctx context.Context, record *models.Cart) (*models.Cart, error)
	FindLine(ctx context.Context, cartID uint, sku string) (*models.CartLine, error)
	CreateLine(ctx context.Context, line *models.CartLine) error
	UpdateLineQuantity(ctx context.Context, lineID uint, quantity int) error
	DeleteLine(ctx context.Context, cartID uint, sku string) error
	DeleteLines(ctx context.Context, cartID uint) error
	DeleteCart(ctx context.Context, cartID uint) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uint) (*models.Product, error)
}
