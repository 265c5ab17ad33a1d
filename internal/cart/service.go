package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lukechats/retail-backend/pkg/db"
	"github.com/lukechats/retail-backend/pkg/db/models"
	pkgerrors "github.com/lukechats/retail-backend/pkg/errors"
)

// lineUniqueConstraint backs the merge-by-SKU guarantee across processes.
const lineUniqueConstraint = "ux_cart_lines_cart_sku"

// Service exposes cart operations keyed by customer id.
type Service interface {
	GetOrCreateCart(ctx context.Context, customerID string) (*models.Cart, error)
	GetCart(ctx context.Context, customerID string) (*CartDTO, error)
	AddToCart(ctx context.Context, customerID string, productID uint, quantity int) (*CartDTO, error)
	RemoveFromCart(ctx context.Context, customerID, sku string) (*CartDTO, error)
	ClearCart(ctx context.Context, customerID string) error
}

// CartLineDTO is the read shape for one cart line.
type CartLineDTO struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

// CartDTO is the read shape for a whole cart. Total is derived on every read
// and never stored.
type CartDTO struct {
	ID         uint          `json:"id"`
	CustomerID string        `json:"customer_id"`
	Lines      []CartLineDTO `json:"lines"`
	Total      string        `json:"total"`
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
	locks    *customerLocks
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
		locks:    newCustomerLocks(),
	}, nil
}

// Total sums unit price times quantity over the given lines.
func Total(lines []models.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// GetOrCreateCart returns the customer's earliest cart, persisting a fresh
// empty one for first-time customers.
func (s *service) GetOrCreateCart(ctx context.Context, customerID string) (*models.Cart, error) {
	customerID, err := normalizeCustomerID(customerID)
	if err != nil {
		return nil, err
	}

	release := s.locks.acquire(customerID)
	defer release()

	var record *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		record, txErr = s.getOrCreateCart(ctx, s.repo.WithTx(tx), customerID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetCart returns the customer's earliest cart with its lines. A customer
// without a cart gets a transient empty cart; nothing is persisted on reads.
func (s *service) GetCart(ctx context.Context, customerID string) (*CartDTO, error) {
	customerID, err := normalizeCustomerID(customerID)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.FindEarliestByCustomerWithLines(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &CartDTO{CustomerID: customerID, Lines: []CartLineDTO{}, Total: "0.00"}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return toCartDTO(record), nil
}

// AddToCart adds quantity units of the product to the customer's cart. A line
// already holding the product's SKU is merged; otherwise a new line snapshots
// the product's current name and price.
func (s *service) AddToCart(ctx context.Context, customerID string, productID uint, quantity int) (*CartDTO, error) {
	customerID, err := normalizeCustomerID(customerID)
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	release := s.locks.acquire(customerID)
	defer release()

	err = s.applyAdd(ctx, customerID, product, quantity)
	if db.IsUniqueViolation(err, lineUniqueConstraint) {
		// Another process inserted the same SKU and aborted our transaction.
		// The whole read-modify-write is replayed once in a fresh transaction,
		// where the existing line is found and merged.
		err = s.applyAdd(ctx, customerID, product, quantity)
		if db.IsUniqueViolation(err, lineUniqueConstraint) {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert cart line")
		}
	}
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, customerID)
}

// RemoveFromCart deletes the whole line for the SKU. Removing a SKU that is
// not in the cart, or from a customer with no cart, succeeds.
func (s *service) RemoveFromCart(ctx context.Context, customerID, sku string) (*CartDTO, error) {
	customerID, err := normalizeCustomerID(customerID)
	if err != nil {
		return nil, err
	}
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}

	release := s.locks.acquire(customerID)
	defer release()

	record, err := s.repo.FindEarliestByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &CartDTO{CustomerID: customerID, Lines: []CartLineDTO{}, Total: "0.00"}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if err := s.repo.DeleteLine(ctx, record.ID, sku); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
	}
	return s.GetCart(ctx, customerID)
}

// ClearCart deletes the customer's cart and every line in it. Clearing when
// no cart exists succeeds.
func (s *service) ClearCart(ctx context.Context, customerID string) error {
	customerID, err := normalizeCustomerID(customerID)
	if err != nil {
		return err
	}

	release := s.locks.acquire(customerID)
	defer release()

	record, err := s.repo.FindEarliestByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteLines(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart lines")
		}
		if err := repo.DeleteCart(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart")
		}
		return nil
	})
}

// getOrCreateCart returns the customer's earliest cart, creating one when the
// customer has none. With historical duplicates the lowest id wins so every
// caller converges on the same cart.
func (s *service) getOrCreateCart(ctx context.Context, repo CartRepository, customerID string) (*models.Cart, error) {
	record, err := repo.FindEarliestByCustomer(ctx, customerID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	record, err = repo.Create(ctx, &models.Cart{CustomerID: customerID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	return record, nil
}

// applyAdd runs one read-modify-write of the add in its own transaction. A
// unique violation on the line insert is returned unwrapped so the caller can
// replay against the committed state; on Postgres the violation has already
// aborted this transaction, so no further statement may run inside it.
func (s *service) applyAdd(ctx context.Context, customerID string, product *models.Product, quantity int) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := s.getOrCreateCart(ctx, repo, customerID)
		if err != nil {
			return err
		}
		return s.mergeOrInsertLine(ctx, repo, record.ID, product, quantity)
	})
}

// mergeOrInsertLine applies the add: bump the quantity of an existing line or
// insert a fresh snapshot line.
func (s *service) mergeOrInsertLine(ctx context.Context, repo CartRepository, cartID uint, product *models.Product, quantity int) error {
	line, err := repo.FindLine(ctx, cartID, product.SKU)
	if err == nil {
		return repo.UpdateLineQuantity(ctx, line.ID, line.Quantity+quantity)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}

	insertErr := repo.CreateLine(ctx, &models.CartLine{
		CartID:    cartID,
		SKU:       product.SKU,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  quantity,
	})
	if insertErr == nil || db.IsUniqueViolation(insertErr, lineUniqueConstraint) {
		return insertErr
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, insertErr, "insert cart line")
}

func normalizeCustomerID(customerID string) (string, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	return customerID, nil
}

func toCartDTO(record *models.Cart) *CartDTO {
	lines := make([]CartLineDTO, 0, len(record.Lines))
	for _, line := range record.Lines {
		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		lines = append(lines, CartLineDTO{
			SKU:       line.SKU,
			Name:      line.Name,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Quantity:  line.Quantity,
			LineTotal: lineTotal.StringFixed(2),
		})
	}
	return &CartDTO{
		ID:         record.ID,
		CustomerID: record.CustomerID,
		Lines:      lines,
		Total:      Total(record.Lines).StringFixed(2),
	}
}
