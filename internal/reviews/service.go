package reviews

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rowanmckenna/marketstead-backend/internal/catalog"
	"github.com/rowanmckenna/marketstead-backend/pkg/db/models"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
	"github.com/rowanmckenna/marketstead-backend/pkg/pagination"
)

// CreateInput carries a validated review submission.
type CreateInput struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Rating    int
	Comment   string
}

// ProductReviews is the listing payload: one page of reviews plus the
// product's running summary.
type ProductReviews struct {
	Reviews       []models.Review `json:"reviews"`
	NextCursor    string          `json:"next_cursor,omitempty"`
	ReviewCount   int64           `json:"review_count"`
	AverageRating float64         `json:"average_rating"`
}

// ServiceParams groups dependencies for the review service.
type ServiceParams struct {
	ReviewRepo  *Repository
	ProductRepo *catalog.ProductRepository
}

// Service exposes review submission and listing.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Review, error)
	ListForProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ProductReviews, error)
}

type service struct {
	reviewRepo  *Repository
	productRepo *catalog.ProductRepository
}

// NewService builds a review service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.ReviewRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review repo is required")
	}
	if params.ProductRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	return &service{
		reviewRepo:  params.ReviewRepo,
		productRepo: params.ProductRepo,
	}, nil
}

// Create stores a rating for an existing product.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Review, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if err := s.ensureProductExists(ctx, input.ProductID); err != nil {
		return nil, err
	}

	review := &models.Review{
		UserID:    input.UserID,
		ProductID: input.ProductID,
		Rating:    input.Rating,
	}
	if comment := strings.TrimSpace(input.Comment); comment != "" {
		review.Comment = &comment
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	return review, nil
}

// ListForProduct returns a review page together with count and average.
func (s *service) ListForProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ProductReviews, error) {
	if err := s.ensureProductExists(ctx, productID); err != nil {
		return nil, err
	}

	rows, nextCursor, err := s.reviewRepo.ListForProduct(ctx, productID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	count, average, err := s.reviewRepo.Summary(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize reviews")
	}

	return &ProductReviews{
		Reviews:       rows,
		NextCursor:    nextCursor,
		ReviewCount:   count,
		AverageRating: average,
	}, nil
}

func (s *service) ensureProductExists(ctx context.Context, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return nil
}
