package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rowanmckenna/marketstead-backend/pkg/db"
	"github.com/rowanmckenna/marketstead-backend/pkg/db/models"
	"github.com/rowanmckenna/marketstead-backend/pkg/enums"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
	"github.com/rowanmckenna/marketstead-backend/pkg/pagination"
)

// Actor identifies who is performing a catalog mutation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// CreateProductInput carries a validated product creation request.
type CreateProductInput struct {
	CategoryID     uuid.UUID
	Name           string
	Description    string
	Images         []string
	Price          decimal.Decimal
	CompareAtPrice *decimal.Decimal
	Quantity       int
}

// UpdateProductInput carries partial product updates; nil fields are untouched.
type UpdateProductInput struct {
	CategoryID     *uuid.UUID
	Name           *string
	Description    *string
	Images         []string
	Price          *decimal.Decimal
	CompareAtPrice *decimal.Decimal
	ClearCompareAt bool
	Quantity       *int
}

// CategoryInput carries a validated category create/update request.
type CategoryInput struct {
	Name     string
	ParentID *uuid.UUID
}

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	ProductRepo  *ProductRepository
	CategoryRepo *CategoryRepository
}

// Service exposes the catalog store: browse, vendor CRUD and category admin.
type Service interface {
	ListProducts(ctx context.Context, filter ProductFilter, params pagination.Params) ([]models.Product, string, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	CreateProduct(ctx context.Context, actor Actor, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, actor Actor, productID uuid.UUID, input UpdateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, actor Actor, productID uuid.UUID) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, input CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, categoryID uuid.UUID, input CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, categoryID uuid.UUID) error
}

type service struct {
	productRepo  *ProductRepository
	categoryRepo *CategoryRepository
}

// NewService builds a catalog service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.ProductRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	if params.CategoryRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category repo is required")
	}
	return &service{
		productRepo:  params.ProductRepo,
		categoryRepo: params.CategoryRepo,
	}, nil
}

func (s *service) ListProducts(ctx context.Context, filter ProductFilter, params pagination.Params) ([]models.Product, string, error) {
	return s.productRepo.List(ctx, filter, params)
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	product, err := s.productRepo.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// CreateProduct lists a new product under the acting vendor.
func (s *service) CreateProduct(ctx context.Context, actor Actor, input CreateProductInput) (*models.Product, error) {
	if actor.Role != enums.UserRoleVendor && actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only vendors can list products")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	if _, err := s.categoryRepo.FindByID(ctx, input.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "category does not exist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}

	product := &models.Product{
		VendorID:       actor.UserID,
		CategoryID:     input.CategoryID,
		Name:           strings.TrimSpace(input.Name),
		Slug:           slugify(input.Name),
		Description:    input.Description,
		Images:         input.Images,
		Price:          input.Price.Round(2),
		CompareAtPrice: input.CompareAtPrice,
		Quantity:       input.Quantity,
		IsActive:       true,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			// Slug collision: retry once with a random suffix.
			product.Slug = fmt.Sprintf("%s-%s", product.Slug, uuid.NewString()[:8])
			if retryErr := s.productRepo.Create(ctx, product); retryErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, retryErr, "create product")
			}
			return product, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

// UpdateProduct applies a partial update. Vendors may only touch their own
// listings; admins may touch any.
func (s *service) UpdateProduct(ctx context.Context, actor Actor, productID uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.loadOwnedProduct(ctx, actor, productID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Images != nil {
		product.Images = input.Images
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		product.Price = input.Price.Round(2)
	}
	if input.ClearCompareAt {
		product.CompareAtPrice = nil
	} else if input.CompareAtPrice != nil {
		product.CompareAtPrice = input.CompareAtPrice
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		product.Quantity = *input.Quantity
	}
	if input.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "category does not exist")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		product.CategoryID = *input.CategoryID
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return product, nil
}

// DeleteProduct deactivates a listing. Order snapshots keep the product data
// they copied at placement; carts report it unavailable.
func (s *service) DeleteProduct(ctx context.Context, actor Actor, productID uuid.UUID) error {
	if _, err := s.loadOwnedProduct(ctx, actor, productID); err != nil {
		return err
	}
	if err := s.productRepo.Deactivate(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) loadOwnedProduct(ctx context.Context, actor Actor, productID uuid.UUID) (*models.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if actor.Role != enums.UserRoleAdmin && product.VendorID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another vendor")
	}
	return product, nil
}

func (s *service) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categoryRepo.List(ctx)
}

// CreateCategory adds a category. Nesting is limited to one level: the parent
// must itself be a top-level category.
func (s *service) CreateCategory(ctx context.Context, input CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}

	category := &models.Category{
		Name: name,
		Slug: slugify(name),
	}

	if input.ParentID != nil {
		parent, err := s.categoryRepo.FindByID(ctx, *input.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parent category does not exist")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent category")
		}
		if parent.IsSubcategory {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "subcategories cannot have children")
		}
		category.ParentID = input.ParentID
		category.IsSubcategory = true
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return category, nil
}

// UpdateCategory renames or re-parents a category, preserving the single
// nesting level.
func (s *service) UpdateCategory(ctx context.Context, categoryID uuid.UUID, input CategoryInput) (*models.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		category.Name = name
		category.Slug = slugify(name)
	}

	if input.ParentID != nil {
		if *input.ParentID == category.ID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be its own parent")
		}
		children, err := s.categoryRepo.CountChildren(ctx, category.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count children")
		}
		if children > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category with subcategories cannot become a subcategory")
		}
		parent, err := s.categoryRepo.FindByID(ctx, *input.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parent category does not exist")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent category")
		}
		if parent.IsSubcategory {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "subcategories cannot have children")
		}
		category.ParentID = input.ParentID
		category.IsSubcategory = true
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
	}
	return category, nil
}

// DeleteCategory removes an empty category; ones still holding products or
// subcategories are protected.
func (s *service) DeleteCategory(ctx context.Context, categoryID uuid.UUID) error {
	children, err := s.categoryRepo.CountChildren(ctx, categoryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count children")
	}
	if children > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "category still has subcategories")
	}
	count, err := s.categoryRepo.CountProducts(ctx, categoryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count products")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "category still has products")
	}
	if err := s.categoryRepo.Delete(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "category not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
	}
	return nil
}

var slugInvalidRe = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugInvalidRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
