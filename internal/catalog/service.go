package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lukechats/retail-backend/pkg/db/models"
	pkgerrors "github.com/lukechats/retail-backend/pkg/errors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Service exposes catalog read operations.
type Service interface {
	GetProduct(ctx context.Context, id uint) (*ProductDTO, error)
	ListActiveProducts(ctx context.Context) ([]ProductDTO, error)
	ListProducts(ctx context.Context, limit, offset int) ([]ProductDTO, error)
}

// ProductDTO is the read shape handed to callers. Price is rendered with two
// decimal places so every surface shows the same figure.
type ProductDTO struct {
	ID          uint   `json:"id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	IsActive    bool   `json:"is_active"`
}

type service struct {
	repo ProductRepository
}

// NewService builds the catalog service on top of the given repository.
func NewService(repo ProductRepository) Service {
	return &service{repo: repo}
}

func (s *service) GetProduct(ctx context.Context, id uint) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	dto := toProductDTO(*product)
	return &dto, nil
}

func (s *service) ListActiveProducts(ctx context.Context) ([]ProductDTO, error) {
	products, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list active products")
	}
	return toProductDTOs(products), nil
}

func (s *service) ListProducts(ctx context.Context, limit, offset int) ([]ProductDTO, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	products, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return toProductDTOs(products), nil
}

func toProductDTO(p models.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		IsActive:    p.IsActive,
	}
}

func toProductDTOs(products []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	return out
}
