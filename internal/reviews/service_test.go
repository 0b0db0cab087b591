package reviews

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
	dsn := "file:reviews_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Product{}, &models.Review{}))

	svc, err := NewService(ServiceParams{
		ReviewRepo:  NewRepository(conn),
		ProductRepo: catalog.NewProductRepository(conn),
	})
	require.NoError(t, err)
	return svc, conn
}

func seedProduct(t *testing.T, conn *gorm.DB) *models.Product {
	t.Helper()
	product := &models.Product{
		VendorID:   uuid.New(),
		CategoryID: uuid.New(),
		Name:       "Reviewed",
		Slug:       "reviewed-" + uuid.NewString()[:8],
		Price:      decimal.RequireFromString("10.00"),
		Quantity:   1,
		IsActive:   true,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func TestCreateAndListReviews(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, conn)
	userID := uuid.New()

	first, err := svc.Create(ctx, CreateInput{
		UserID: userID, ProductID: product.ID, Rating: 5, Comment: "great trowel",
	})
	require.NoError(t, err)
	require.NotNil(t, first.Comment)
	assert.Equal(t, "great trowel", *first.Comment)

	// The same user can review again; both rows survive.
	_, err = svc.Create(ctx, CreateInput{
		UserID: userID, ProductID: product.ID, Rating: 3,
	})
	require.NoError(t, err)

	page, err := svc.ListForProduct(ctx, product.ID, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Reviews, 2)
	assert.Equal(t, int64(2), page.ReviewCount)
	assert.InDelta(t, 4.0, page.AverageRating, 0.001)
}

func TestCreateReviewValidation(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, conn)

	_, err := svc.Create(ctx, CreateInput{UserID: uuid.New(), ProductID: product.ID, Rating: 0})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Create(ctx, CreateInput{UserID: uuid.New(), ProductID: product.ID, Rating: 6})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Create(ctx, CreateInput{UserID: uuid.New(), ProductID: uuid.New(), Rating: 4})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.Create(ctx, CreateInput{ProductID: product.ID, Rating: 4})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestEmptyCommentStaysNull(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, conn)

	review, err := svc.Create(ctx, CreateInput{
		UserID: uuid.New(), ProductID: product.ID, Rating: 4, Comment: "   ",
	})
	require.NoError(t, err)
	assert.Nil(t, review.Comment)
}
