package wishlist

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
	"github.com/rowanmckenna/marketstead-backend/pkg/db/models"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
	"github.com/rowanmckenna/marketstead-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:wishlist_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Product{}, &models.WishlistItem{}))

	svc, err := NewService(ServiceParams{
		WishlistRepo: NewRepository(conn),
		ProductRepo:  catalog.NewProductRepository(conn),
	})
	require.NoError(t, err)
	return svc, conn
}

func seedProduct(t *testing.T, conn *gorm.DB, name string) *models.Product {
	t.Helper()
	product := &models.Product{
		VendorID:   uuid.New(),
		CategoryID: uuid.New(),
		Name:       name,
		Slug:       "wish-" + uuid.NewString()[:8],
		Price:      decimal.RequireFromString("10.00"),
		Quantity:   1,
		IsActive:   true,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func TestAddIsSetLike(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, conn, "Trellis")

	require.NoError(t, svc.Add(ctx, userID, product.ID))
	require.NoError(t, svc.Add(ctx, userID, product.ID))
	require.NoError(t, svc.Add(ctx, userID, product.ID))

	var count int64
	require.NoError(t, conn.Model(&models.WishlistItem{}).
		Where("user_id = ?", userID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAddRequiresExistingProduct(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	err := svc.Add(context.Background(), uuid.New(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestRemoveIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, conn, "Bench")

	require.NoError(t, svc.Add(ctx, userID, product.ID))
	require.NoError(t, svc.Remove(ctx, userID, product.ID))
	require.NoError(t, svc.Remove(ctx, userID, product.ID))

	page, err := svc.List(ctx, userID, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestListJoinsProductData(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	first := seedProduct(t, conn, "Arbor")
	second := seedProduct(t, conn, "Gate")
	require.NoError(t, svc.Add(ctx, userID, first.ID))
	require.NoError(t, svc.Add(ctx, userID, second.ID))

	// Another user's saves are invisible.
	require.NoError(t, svc.Add(ctx, uuid.New(), first.ID))

	page, err := svc.List(ctx, userID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	byID := map[uuid.UUID]Entry{}
	for _, entry := range page.Items {
		byID[entry.ProductID] = entry
	}
	assert.Equal(t, "Arbor", byID[first.ID].Name)
	assert.Equal(t, "10.00", byID[first.ID].Price.StringFixed(2))
	assert.True(t, byID[second.ID].IsActive)
}
