package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/lukechats/retail-backend/pkg/db/models"
)

// ProductRepository defines read operations over the product catalog.
type ProductRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Product, error)
	ListActive(ctx context.Context) ([]models.Product, error)
	List(ctx context.Context, limit, offset int) ([]models.Product, error)
}

// Repository is the GORM-backed catalog repository.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a single product by its surrogate id.
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListActive returns every purchasable product in insertion order.
func (r *Repository) ListActive(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// List returns a page of products regardless of active state.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
