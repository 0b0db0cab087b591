package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rowanmckenna/marketstead-backend/pkg/db/models"
	"github.com/rowanmckenna/marketstead-backend/pkg/enums"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
	"github.com/rowanmckenna/marketstead-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Category{}, &models.Product{}))
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		ProductRepo:  NewProductRepository(conn),
		CategoryRepo: NewCategoryRepository(conn),
	})
	require.NoError(t, err)
	return svc
}

func seedCategory(t *testing.T, conn *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, Slug: slugify(name)}
	require.NoError(t, conn.Create(category).Error)
	return category
}

func vendorActor() Actor {
	return Actor{UserID: uuid.New(), Role: enums.UserRoleVendor}
}

func TestCreateProduct(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	category := seedCategory(t, conn, "Garden Tools")
	actor := vendorActor()

	product, err := svc.CreateProduct(ctx, actor, CreateProductInput{
		CategoryID: category.ID,
		Name:       "Steel Trowel",
		Price:      decimal.RequireFromString("12.50"),
		Quantity:   10,
		Images:     []string{"https://img.example.com/trowel.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "steel-trowel", product.Slug)
	assert.Equal(t, actor.UserID, product.VendorID)
	assert.True(t, product.IsActive)

	// Same name gets a suffixed slug instead of a conflict.
	again, err := svc.CreateProduct(ctx, actor, CreateProductInput{
		CategoryID: category.ID,
		Name:       "Steel Trowel",
		Price:      decimal.RequireFromString("13.00"),
		Quantity:   5,
	})
	require.NoError(t, err)
	assert.NotEqual(t, product.Slug, again.Slug)
	assert.Contains(t, again.Slug, "steel-trowel-")
}

func TestCreateProductValidation(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	category := seedCategory(t, conn, "Seeds")

	_, err := svc.CreateProduct(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}, CreateProductInput{
		CategoryID: category.ID, Name: "X", Price: decimal.NewFromInt(1),
	})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	_, err = svc.CreateProduct(ctx, vendorActor(), CreateProductInput{
		CategoryID: category.ID, Name: "X", Price: decimal.RequireFromString("-1"),
	})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.CreateProduct(ctx, vendorActor(), CreateProductInput{
		CategoryID: uuid.New(), Name: "X", Price: decimal.NewFromInt(1),
	})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdateProductOwnership(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	category := seedCategory(t, conn, "Planters")
	owner := vendorActor()

	product, err := svc.CreateProduct(ctx, owner, CreateProductInput{
		CategoryID: category.ID, Name: "Clay Pot", Price: decimal.RequireFromString("8.00"), Quantity: 3,
	})
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("9.50")
	_, err = svc.UpdateProduct(ctx, vendorActor(), product.ID, UpdateProductInput{Price: &newPrice})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	updated, err := svc.UpdateProduct(ctx, owner, product.ID, UpdateProductInput{Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, "9.50", updated.Price.StringFixed(2))

	// Admin may update anyone's listing.
	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	qty := 99
	updated, err = svc.UpdateProduct(ctx, admin, product.ID, UpdateProductInput{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 99, updated.Quantity)
}

func TestDeleteProductDeactivates(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	category := seedCategory(t, conn, "Tools")
	owner := vendorActor()

	product, err := svc.CreateProduct(ctx, owner, CreateProductInput{
		CategoryID: category.ID, Name: "Rake", Price: decimal.RequireFromString("15.00"), Quantity: 2,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, owner, product.ID))

	// Row survives for order snapshots but is invisible by slug.
	_, err = svc.GetProductBySlug(ctx, product.Slug)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	loaded, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsActive)
}

func TestDecrementStockGuard(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	repo := NewProductRepository(conn)
	ctx := context.Background()
	category := seedCategory(t, conn, "Bulbs")

	product := &models.Product{
		VendorID:   uuid.New(),
		CategoryID: category.ID,
		Name:       "Tulip Bulbs",
		Slug:       "tulip-bulbs",
		Price:      decimal.RequireFromString("4.00"),
		Quantity:   5,
		IsActive:   true,
	}
	require.NoError(t, conn.Create(product).Error)

	ok, err := repo.DecrementStock(ctx, product.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	// Remaining 2 < requested 3: guard refuses, stock untouched.
	ok, err = repo.DecrementStock(ctx, product.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	var current models.Product
	require.NoError(t, conn.First(&current, "id = ?", product.ID).Error)
	assert.Equal(t, 2, current.Quantity)

	ok, err = repo.DecrementStock(ctx, product.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStock(ctx, product.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCategoryNestingRules(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	root, err := svc.CreateCategory(ctx, CategoryInput{Name: "Outdoors"})
	require.NoError(t, err)
	assert.False(t, root.IsSubcategory)

	child, err := svc.CreateCategory(ctx, CategoryInput{Name: "Patio", ParentID: &root.ID})
	require.NoError(t, err)
	assert.True(t, child.IsSubcategory)

	// A subcategory cannot be a parent.
	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "Chairs", ParentID: &child.ID})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	// A category cannot become its own parent.
	_, err = svc.UpdateCategory(ctx, root.ID, CategoryInput{ParentID: &root.ID})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	// A parent with children cannot be demoted under another category.
	other, err := svc.CreateCategory(ctx, CategoryInput{Name: "Indoors"})
	require.NoError(t, err)
	_, err = svc.UpdateCategory(ctx, root.ID, CategoryInput{ParentID: &other.ID})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	// Duplicate slug conflicts.
	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "Outdoors"})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestDeleteCategoryGuards(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	root, err := svc.CreateCategory(ctx, CategoryInput{Name: "Plants"})
	require.NoError(t, err)
	child, err := svc.CreateCategory(ctx, CategoryInput{Name: "Succulents", ParentID: &root.ID})
	require.NoError(t, err)

	err = svc.DeleteCategory(ctx, root.ID)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	_, err = svc.CreateProduct(ctx, vendorActor(), CreateProductInput{
		CategoryID: child.ID, Name: "Aloe", Price: decimal.RequireFromString("6.00"), Quantity: 1,
	})
	require.NoError(t, err)

	err = svc.DeleteCategory(ctx, child.ID)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	empty, err := svc.CreateCategory(ctx, CategoryInput{Name: "Empty"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteCategory(ctx, empty.ID))

	err = svc.DeleteCategory(ctx, empty.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListProductsPagination(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	category := seedCategory(t, conn, "Bulk")
	actor := vendorActor()

	for i := 0; i < 5; i++ {
		_, err := svc.CreateProduct(ctx, actor, CreateProductInput{
			CategoryID: category.ID,
			Name:       "Item " + uuid.NewString()[:8],
			Price:      decimal.NewFromInt(int64(i + 1)),
			Quantity:   1,
		})
		require.NoError(t, err)
	}

	page1, cursor, err := svc.ListProducts(ctx, ProductFilter{ActiveOnly: true}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page1, 2)
	require.NotEmpty(t, cursor)

	page2, _, err := svc.ListProducts(ctx, ProductFilter{ActiveOnly: true}, pagination.Params{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	assert.Len(t, page2, 2)
	for _, p1 := range page1 {
		for _, p2 := range page2 {
			assert.NotEqual(t, p1.ID, p2.ID)
		}
	}
}
