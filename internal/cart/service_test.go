package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rowanmckenna/marketstead-backend/internal/catalog"
	"github.com/rowanmckenna/marketstead-backend/pkg/config"
	"github.com/rowanmckenna/marketstead-backend/pkg/db/models"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Category{}, &models.Product{}, &models.Cart{}, &models.CartItem{}))
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		CartRepo:    NewRepository(conn),
		ProductRepo: catalog.NewProductRepository(conn),
		Pricing: config.PricingConfig{
			TaxRate:               decimal.RequireFromString("0.20"),
			FreeShippingThreshold: decimal.RequireFromString("50"),
			FlatShippingFee:       decimal.RequireFromString("5.99"),
		},
	})
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, conn *gorm.DB, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		VendorID:   uuid.New(),
		CategoryID: uuid.New(),
		Name:       "Seeded " + uuid.NewString()[:8],
		Slug:       "seeded-" + uuid.NewString()[:8],
		Price:      decimal.RequireFromString(price),
		Quantity:   stock,
		IsActive:   true,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func TestAddItemMergesQuantities(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, conn, "10.00", 10)

	require.NoError(t, svc.AddItem(ctx, userID, product.ID, 2))
	require.NoError(t, svc.AddItem(ctx, userID, product.ID, 3))

	view, err := svc.GetCartView(ctx, userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, "50.00", view.Items[0].LineTotal.StringFixed(2))
}

func TestAddItemValidation(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, conn, "10.00", 3)

	err := svc.AddItem(ctx, userID, product.ID, 0)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = svc.AddItem(ctx, userID, uuid.New(), 1)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	err = svc.AddItem(ctx, userID, product.ID, 4)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 4, details["requested"])
	assert.Equal(t, 3, details["available"])

	// Merging beyond stock is refused too.
	require.NoError(t, svc.AddItem(ctx, userID, product.ID, 2))
	err = svc.AddItem(ctx, userID, product.ID, 2)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestUpdateItemQuantity(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, conn, "5.00", 10)

	require.NoError(t, svc.AddItem(ctx, userID, product.ID, 2))
	require.NoError(t, svc.UpdateItemQuantity(ctx, userID, product.ID, 7))

	view, err := svc.GetCartView(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 7, view.Items[0].Quantity)

	err = svc.UpdateItemQuantity(ctx, userID, product.ID, 0)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = svc.UpdateItemQuantity(ctx, userID, product.ID, 11)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	other := seedProduct(t, conn, "1.00", 5)
	err = svc.UpdateItemQuantity(ctx, userID, other.ID, 1)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, conn, "5.00", 10)

	require.NoError(t, svc.AddItem(ctx, userID, product.ID, 1))
	require.NoError(t, svc.RemoveItem(ctx, userID, product.ID))
	require.NoError(t, svc.RemoveItem(ctx, userID, product.ID))
	require.NoError(t, svc.RemoveItem(ctx, uuid.New(), product.ID))

	view, err := svc.GetCartView(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestClearCart(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.ClearCart(ctx, userID))

	a := seedProduct(t, conn, "5.00", 10)
	b := seedProduct(t, conn, "3.00", 10)
	require.NoError(t, svc.AddItem(ctx, userID, a.ID, 1))
	require.NoError(t, svc.AddItem(ctx, userID, b.ID, 2))

	require.NoError(t, svc.ClearCart(ctx, userID))

	view, err := svc.GetCartView(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Totals.Total.IsZero())
}

func TestGetCartViewTotals(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	userID := uuid.New()

	a := seedProduct(t, conn, "10.00", 10)
	b := seedProduct(t, conn, "5.00", 10)
	require.NoError(t, svc.AddItem(ctx, userID, a.ID, 2))
	require.NoError(t, svc.AddItem(ctx, userID, b.ID, 1))

	view, err := svc.GetCartView(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "25.00", view.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "5.00", view.Totals.Tax.StringFixed(2))
	assert.Equal(t, "5.99", view.Totals.Shipping.StringFixed(2))
	assert.Equal(t, "35.99", view.Totals.Total.StringFixed(2))
}

func TestGetCartViewFlagsUnavailableProducts(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	userID := uuid.New()

	kept := seedProduct(t, conn, "10.00", 10)
	gone := seedProduct(t, conn, "99.00", 10)
	require.NoError(t, svc.AddItem(ctx, userID, kept.ID, 1))
	require.NoError(t, svc.AddItem(ctx, userID, gone.ID, 1))

	require.NoError(t, conn.Model(&models.Product{}).
		Where("id = ?", gone.ID).
		Update("is_active", false).Error)

	view, err := svc.GetCartView(ctx, userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	var unavailable *ViewItem
	for i := range view.Items {
		if view.Items[i].ProductID == gone.ID {
			unavailable = &view.Items[i]
		}
	}
	require.NotNil(t, unavailable)
	assert.True(t, unavailable.Unavailable)
	assert.True(t, unavailable.LineTotal.IsZero())

	// Only the available line contributes to totals.
	assert.Equal(t, "10.00", view.Totals.Subtotal.StringFixed(2))
}

func TestGetOrCreateCartIsStable(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.GetOrCreateCart(ctx, userID)
	require.NoError(t, err)
	second, err := svc.GetOrCreateCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = svc.GetOrCreateCart(ctx, uuid.Nil)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}
