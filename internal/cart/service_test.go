package cart

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lukechats/retail-backend/pkg/db/models"
	pkgerrors "github.com/lukechats/retail-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:cart_%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&models.Product{}, &models.Cart{}, &models.CartLine{}))
	return gdb
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	svc, err := NewService(NewRepository(gdb), gormTxRunner{db: gdb}, productFinder{db: gdb})
	require.NoError(t, err)
	return svc, gdb
}

type productFinder struct {
	db *gorm.DB
}

func (f productFinder) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := f.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func mustCreateProduct(t *testing.T, gdb *gorm.DB, sku, name, price string, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		SKU:         sku,
		Name:        name,
		Description: "stocked",
		Price:       decimal.RequireFromString(price),
		IsActive:    active,
	}
	require.NoError(t, gdb.Create(product).Error)
	return product
}

func TestGetCartWithoutCartIsTransient(t *testing.T) {
	svc, gdb := newTestService(t)

	got, err := svc.GetCart(context.Background(), "guest")
	require.NoError(t, err)
	assert.Equal(t, uint(0), got.ID)
	assert.Empty(t, got.Lines)
	assert.Equal(t, "0.00", got.Total)

	var count int64
	require.NoError(t, gdb.Model(&models.Cart{}).Count(&count).Error)
	assert.Zero(t, count, "reads must not persist a cart")
}

func TestGetOrCreateCartIsStable(t *testing.T) {
	svc, gdb := newTestService(t)

	first, err := svc.GetOrCreateCart(context.Background(), "cust-1")
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	again, err := svc.GetOrCreateCart(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	var count int64
	require.NoError(t, gdb.Model(&models.Cart{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAddToCartSnapshotsAndMerges(t *testing.T) {
	svc, gdb := newTestService(t)
	tea := mustCreateProduct(t, gdb, "TEA-GRN", "Tea", "3.50", true)

	got, err := svc.AddToCart(context.Background(), "cust-1", tea.ID, 2)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "TEA-GRN", got.Lines[0].SKU)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.Equal(t, "3.50", got.Lines[0].UnitPrice)
	assert.Equal(t, "7.00", got.Total)

	got, err = svc.AddToCart(context.Background(), "cust-1", tea.ID, 3)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1, "same SKU must merge into one line")
	assert.Equal(t, 5, got.Lines[0].Quantity)
	assert.Equal(t, "17.50", got.Total)
}

func TestAddToCartSnapshotSurvivesPriceChange(t *testing.T) {
	svc, gdb := newTestService(t)
	tea := mustCreateProduct(t, gdb, "TEA-GRN", "Tea", "3.50", true)

	_, err := svc.AddToCart(context.Background(), "cust-1", tea.ID, 1)
	require.NoError(t, err)

	require.NoError(t, gdb.Model(&models.Product{}).
		Where("id = ?", tea.ID).
		Updates(map[string]any{"price": "9.99", "name": "Premium Tea"}).Error)

	got, err := svc.GetCart(context.Background(), "cust-1")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "Tea", got.Lines[0].Name)
	assert.Equal(t, "3.50", got.Lines[0].UnitPrice)
}

func TestAddToCartValidation(t *testing.T) {
	svc, gdb := newTestService(t)
	tea := mustCreateProduct(t, gdb, "TEA-GRN", "Tea", "3.50", true)
	retired := mustCreateProduct(t, gdb, "MUG-OLD", "Retired mug", "9.99", false)

	_, err := svc.AddToCart(context.Background(), "cust-1", tea.ID, 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.AddToCart(context.Background(), "cust-1", tea.ID+100, 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AddToCart(context.Background(), "cust-1", retired.ID, 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AddToCart(context.Background(), "   ", tea.ID, 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestAddToCartPicksEarliestCart(t *testing.T) {
	svc, gdb := newTestService(t)
	tea := mustCreateProduct(t, gdb, "TEA-GRN", "Tea", "3.50", true)

	first := &models.Cart{CustomerID: "cust-1"}
	require.NoError(t, gdb.Create(first).Error)
	second := &models.Cart{CustomerID: "cust-1"}
	require.NoError(t, gdb.Create(second).Error)

	got, err := svc.AddToCart(context.Background(), "cust-1", tea.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	var count int64
	require.NoError(t, gdb.Model(&models.CartLine{}).
		Where("cart_id = ?", second.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRemoveFromCartIsIdempotent(t *testing.T) {
	svc, gdb := newTestService(t)
	tea := mustCreateProduct(t, gdb, "TEA-GRN", "Tea", "3.50", true)
	coffee := mustCreateProduct(t, gdb, "COF-DRK", "Coffee", "7.25", true)

	_, err := svc.AddToCart(context.Background(), "cust-1", tea.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddToCart(context.Background(), "cust-1", coffee.ID, 1)
	require.NoError(t, err)

	got, err := svc.RemoveFromCart(context.Background(), "cust-1", "TEA-GRN")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "COF-DRK", got.Lines[0].SKU)

	got, err = svc.RemoveFromCart(context.Background(), "cust-1", "TEA-GRN")
	require.NoError(t, err)
	assert.Len(t, got.Lines, 1)

	got, err = svc.RemoveFromCart(context.Background(), "nobody", "TEA-GRN")
	require.NoError(t, err)
	assert.Empty(t, got.Lines)
}

func TestClearCartIsIdempotent(t *testing.T) {
	svc, gdb := newTestService(t)
	tea := mustCreateProduct(t, gdb, "TEA-GRN", "Tea", "3.50", true)

	_, err := svc.AddToCart(context.Background(), "cust-1", tea.ID, 2)
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(context.Background(), "cust-1"))
	got, err := svc.GetCart(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Empty(t, got.Lines)
	assert.Equal(t, "0.00", got.Total)

	var carts, lines int64
	require.NoError(t, gdb.Model(&models.Cart{}).Count(&carts).Error)
	require.NoError(t, gdb.Model(&models.CartLine{}).Count(&lines).Error)
	assert.Zero(t, carts, "clear removes the cart row")
	assert.Zero(t, lines)

	require.NoError(t, svc.ClearCart(context.Background(), "cust-1"))
	require.NoError(t, svc.ClearCart(context.Background(), "nobody"))
}

func TestTotal(t *testing.T) {
	lines := []models.CartLine{
		{UnitPrice: decimal.RequireFromString("3.50"), Quantity: 2},
		{UnitPrice: decimal.RequireFromString("7.25"), Quantity: 1},
	}
	assert.Equal(t, "14.25", Total(lines).StringFixed(2))
	assert.Equal(t, "0.00", Total(nil).StringFixed(2))
}

// fakeRepo is an in-memory CartRepository used to exercise the concurrent
// add path without SQLite's single-writer behavior getting in the way.
type fakeRepo struct {
	mu     sync.Mutex
	nextID uint
	carts  map[string]*models.Cart
	lines  map[string]*models.CartLine
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		nextID: 1,
		carts:  make(map[string]*models.Cart),
		lines:  make(map[string]*models.CartLine),
	}
}

func (f *fakeRepo) lineKey(cartID uint, sku string) string {
	return fmt.Sprintf("%d/%s", cartID, sku)
}

func (f *fakeRepo) WithTx(tx *gorm.DB) CartRepository { return f }

func (f *fakeRepo) FindEarliestByCustomer(ctx context.Context, customerID string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.carts[customerID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *record
	return &clone, nil
}

func (f *fakeRepo) FindEarliestByCustomerWithLines(ctx context.Context, customerID string) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.carts[customerID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *record
	clone.Lines = nil
	for _, line := range f.lines {
		if line.CartID == record.ID {
			clone.Lines = append(clone.Lines, *line)
		}
	}
	return &clone, nil
}

func (f *fakeRepo) Create(ctx context.Context, record *models.Cart) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.carts[record.CustomerID]; ok {
		return nil, fmt.Errorf("duplicate key value violates unique constraint")
	}
	record.ID = f.nextID
	f.nextID++
	f.carts[record.CustomerID] = record
	return record, nil
}

func (f *fakeRepo) FindLine(ctx context.Context, cartID uint, sku string) (*models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	line, ok := f.lines[f.lineKey(cartID, sku)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *line
	return &clone, nil
}

func (f *fakeRepo) CreateLine(ctx context.Context, line *models.CartLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := f.lineKey(line.CartID, line.SKU)
	if _, ok := f.lines[key]; ok {
		return fmt.Errorf("duplicate key value violates unique constraint \"ux_cart_lines_cart_sku\"")
	}
	line.ID = f.nextID
	f.nextID++
	f.lines[key] = line
	return nil
}

func (f *fakeRepo) UpdateLineQuantity(ctx context.Context, lineID uint, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, line := range f.lines {
		if line.ID == lineID {
			line.Quantity = quantity
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepo) DeleteLine(ctx context.Context, cartID uint, sku string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lines, f.lineKey(cartID, sku))
	return nil
}

func (f *fakeRepo) DeleteCart(ctx context.Context, cartID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for customerID, record := range f.carts {
		if record.ID == cartID {
			delete(f.carts, customerID)
		}
	}
	return nil
}

func (f *fakeRepo) DeleteLines(ctx context.Context, cartID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, line := range f.lines {
		if line.CartID == cartID {
			delete(f.lines, key)
		}
	}
	return nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type staticProduct struct {
	product models.Product
}

func (s staticProduct) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	if id != s.product.ID {
		return nil, gorm.ErrRecordNotFound
	}
	clone := s.product
	return &clone, nil
}

var errTxAborted = fmt.Errorf("current transaction is aborted, commands ignored until end of transaction block")

// abortedTxRepo imitates Postgres semantics around a lost insert race: the
// first lookup misses, the insert then hits the unique constraint, and every
// later statement in the same transaction fails until a new one begins.
type abortedTxRepo struct {
	*fakeRepo
	misses  int
	aborted bool
}

func (r *abortedTxRepo) WithTx(tx *gorm.DB) CartRepository { return r }

func (r *abortedTxRepo) FindEarliestByCustomer(ctx context.Context, customerID string) (*models.Cart, error) {
	if r.aborted {
		return nil, errTxAborted
	}
	return r.fakeRepo.FindEarliestByCustomer(ctx, customerID)
}

func (r *abortedTxRepo) FindLine(ctx context.Context, cartID uint, sku string) (*models.CartLine, error) {
	if r.aborted {
		return nil, errTxAborted
	}
	if r.misses > 0 {
		r.misses--
		return nil, gorm.ErrRecordNotFound
	}
	return r.fakeRepo.FindLine(ctx, cartID, sku)
}

func (r *abortedTxRepo) CreateLine(ctx context.Context, line *models.CartLine) error {
	if r.aborted {
		return errTxAborted
	}
	err := r.fakeRepo.CreateLine(ctx, line)
	if err != nil {
		r.aborted = true
	}
	return err
}

func (r *abortedTxRepo) UpdateLineQuantity(ctx context.Context, lineID uint, quantity int) error {
	if r.aborted {
		return errTxAborted
	}
	return r.fakeRepo.UpdateLineQuantity(ctx, lineID, quantity)
}

type abortedTxRunner struct {
	repo *abortedTxRepo
}

func (a abortedTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	a.repo.aborted = false
	return fn(nil)
}

func TestAddToCartReplaysInsertRaceInFreshTransaction(t *testing.T) {
	tea := models.Product{
		ID:       1,
		SKU:      "TEA-GRN",
		Name:     "Tea",
		Price:    decimal.RequireFromString("3.50"),
		IsActive: true,
	}
	repo := &abortedTxRepo{fakeRepo: newFakeRepo(), misses: 1}
	cart, err := repo.Create(context.Background(), &models.Cart{CustomerID: "cust-1"})
	require.NoError(t, err)
	require.NoError(t, repo.CreateLine(context.Background(), &models.CartLine{
		CartID:    cart.ID,
		SKU:       tea.SKU,
		Name:      tea.Name,
		UnitPrice: tea.Price,
		Quantity:  1,
	}))

	svc, err := NewService(repo, abortedTxRunner{repo: repo}, staticProduct{product: tea})
	require.NoError(t, err)

	got, err := svc.AddToCart(context.Background(), "cust-1", tea.ID, 2)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 3, got.Lines[0].Quantity)
}

func TestConcurrentAddToCartConvergesToOneLine(t *testing.T) {
	tea := models.Product{
		ID:       1,
		SKU:      "TEA-GRN",
		Name:     "Tea",
		Price:    decimal.RequireFromString("3.50"),
		IsActive: true,
	}
	repo := newFakeRepo()
	svc, err := NewService(repo, fakeTxRunner{}, staticProduct{product: tea})
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddToCart(context.Background(), "cust-1", tea.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.GetCart(context.Background(), "cust-1")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, writers, got.Lines[0].Quantity)
}
