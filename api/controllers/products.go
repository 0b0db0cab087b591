package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rowanmckenna/marketstead-backend/api/middleware"
	"github.com/rowanmckenna/marketstead-backend/api/responses"
	"github.com/rowanmckenna/marketstead-backend/api/validators"
	"github.com/rowanmckenna/marketstead-backend/internal/catalog"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
	"github.com/rowanmckenna/marketstead-backend/pkg/logger"
	"github.com/rowanmckenna/marketstead-backend/pkg/pagination"
)

type createProductPayload struct {
	CategoryID     uuid.UUID        `json:"category_id" validate:"required"`
	Name           string           `json:"name" validate:"required,min=2,max=200"`
	Description    string           `json:"description" validate:"max=5000"`
	Images         []string         `json:"images" validate:"max=10"`
	Price          decimal.Decimal  `json:"price" validate:"required"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price"`
	Quantity       int              `json:"quantity" validate:"gte=0"`
}

type updateProductPayload struct {
	CategoryID     *uuid.UUID       `json:"category_id"`
	Name           *string          `json:"name"`
	Description    *string          `json:"description"`
	Images         []string         `json:"images"`
	Price          *decimal.Decimal `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price"`
	ClearCompareAt bool             `json:"clear_compare_at"`
	Quantity       *int             `json:"quantity"`
}

// ListProducts is the public browse endpoint. Only active listings show up.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		filter := catalog.ProductFilter{ActiveOnly: true}
		if raw := strings.TrimSpace(r.URL.Query().Get("category_id")); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "category_id must be a valid uuid"))
				return
			}
			filter.CategoryID = &id
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("vendor_id")); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "vendor_id must be a valid uuid"))
				return
			}
			filter.VendorID = &id
		}

		products, nextCursor, err := svc.ListProducts(ctx, filter, pagination.FromQuery(r.URL.Query()))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"products":    toProductDTOs(products),
			"next_cursor": nextCursor,
		})
	}
}

// GetProductBySlug returns one active product.
func GetProductBySlug(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "slug is required"))
			return
		}

		product, err := svc.GetProductBySlug(ctx, slug)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toProductDTO(product))
	}
}

// CreateProduct lists a new product under the authenticated vendor.
func CreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		actor, err := catalogActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload createProductPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, err := svc.CreateProduct(ctx, actor, catalog.CreateProductInput{
			CategoryID:     payload.CategoryID,
			Name:           payload.Name,
			Description:    payload.Description,
			Images:         payload.Images,
			Price:          payload.Price,
			CompareAtPrice: payload.CompareAtPrice,
			Quantity:       payload.Quantity,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toProductDTO(product))
	}
}

// UpdateProduct applies a partial update to one of the vendor's listings.
func UpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		actor, err := catalogActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := validators.UUIDParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateProductPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(ctx, actor, productID, catalog.UpdateProductInput{
			CategoryID:     payload.CategoryID,
			Name:           payload.Name,
			Description:    payload.Description,
			Images:         payload.Images,
			Price:          payload.Price,
			CompareAtPrice: payload.CompareAtPrice,
			ClearCompareAt: payload.ClearCompareAt,
			Quantity:       payload.Quantity,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toProductDTO(product))
	}
}

// DeleteProduct deactivates one of the vendor's listings.
func DeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		actor, err := catalogActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := validators.UUIDParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.DeleteProduct(ctx, actor, productID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

func catalogActor(r *http.Request) (catalog.Actor, error) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return catalog.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	role, ok := middleware.RoleFromContext(r.Context())
	if !ok {
		return catalog.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return catalog.Actor{UserID: userID, Role: role}, nil
}
