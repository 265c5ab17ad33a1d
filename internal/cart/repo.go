package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/lukechats/retail-backend/pkg/db/models"
)

// Repository is the GORM-backed cart repository.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindEarliestByCustomer loads the customer's oldest cart without lines.
func (r *Repository) FindEarliestByCustomer(ctx context.Context, customerID string) (*models.Cart, error) {
	var record models.Cart
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("id ASC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindEarliestByCustomerWithLines loads the customer's oldest cart with its
// lines in insertion order.
func (r *Repository) FindEarliestByCustomerWithLines(ctx context.Context, customerID string) (*models.Cart, error) {
	var record models.Cart
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_lines.id ASC")
		}).
		Where("customer_id = ?", customerID).
		Order("id ASC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new cart.
func (r *Repository) Create(ctx context.Context, record *models.Cart) (*models.Cart, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// FindLine loads the line for a SKU within a cart.
func (r *Repository) FindLine(ctx context.Context, cartID uint, sku string) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND sku = ?", cartID, sku).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// CreateLine inserts a new cart line.
func (r *Repository) CreateLine(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

// UpdateLineQuantity sets the quantity on an existing line.
func (r *Repository) UpdateLineQuantity(ctx context.Context, lineID uint, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Update("quantity", quantity).Error
}

// DeleteLine removes the line for a SKU; deleting a missing line is not an error.
func (r *Repository) DeleteLine(ctx context.Context, cartID uint, sku string) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND sku = ?", cartID, sku).
		Delete(&models.CartLine{}).Error
}

// DeleteLines removes every line in the cart.
func (r *Repository) DeleteLines(ctx context.Context, cartID uint) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartLine{}).Error
}

// DeleteCart removes the cart row itself.
func (r *Repository) DeleteCart(ctx context.Context, cartID uint) error {
	return r.db.WithContext(ctx).
		Where("id = ?", cartID).
		Delete(&models.Cart{}).Error
}
