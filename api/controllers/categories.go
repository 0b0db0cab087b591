package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rowanmckenna/marketstead-backend/api/responses"
	"github.com/rowanmckenna/marketstead-backend/api/validators"
	"github.com/rowanmckenna/marketstead-backend/internal/catalog"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
	"github.com/rowanmckenna/marketstead-backend/pkg/logger"
)

type categoryPayload struct {
	Name     string     `json:"name" validate:"required,min=2,max=100"`
	ParentID *uuid.UUID `json:"parent_id"`
}

type updateCategoryPayload struct {
	Name     string     `json:"name" validate:"omitempty,min=2,max=100"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// ListCategories returns the full category tree as a flat list.
func ListCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		categories, err := svc.ListCategories(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]categoryDTO, 0, len(categories))
		for i := range categories {
			out = append(out, toCategoryDTO(&categories[i]))
		}
		responses.WriteSuccess(w, map[string]any{"categories": out})
	}
}

// CreateCategory adds a category, optionally nested one level deep.
func CreateCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload categoryPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		category, err := svc.CreateCategory(ctx, catalog.CategoryInput{
			Name:     payload.Name,
			ParentID: payload.ParentID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toCategoryDTO(category))
	}
}

// UpdateCategory renames or re-parents a category.
func UpdateCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		categoryID, err := validators.UUIDParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateCategoryPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		category, err := svc.UpdateCategory(ctx, categoryID, catalog.CategoryInput{
			Name:     payload.Name,
			ParentID: payload.ParentID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toCategoryDTO(category))
	}
}

// DeleteCategory removes an empty category.
func DeleteCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		categoryID, err := validators.UUIDParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.DeleteCategory(ctx, categoryID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}
