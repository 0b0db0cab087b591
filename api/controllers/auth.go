package controllers

import (
	"net/http"

	"github.com/rowanmckenna/marketstead-backend/api/responses"
	"github.com/rowanmckenna/marketstead-backend/api/validators"
	"github.com/rowanmckenna/marketstead-backend/internal/auth"
	"github.com/rowanmckenna/marketstead-backend/pkg/enums"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
	"github.com/rowanmckenna/marketstead-backend/pkg/logger"
)

type registerPayload struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"required,oneof=customer vendor"`
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates a customer or vendor account and returns a session.
func Register(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload registerPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := svc.Register(ctx, auth.RegisterInput{
			Username: payload.Username,
			Email:    payload.Email,
			Password: payload.Password,
			Role:     enums.UserRole(payload.Role),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sessionDTO{
			User:        toUserDTO(session.User),
			AccessToken: session.AccessToken,
			ExpiresAt:   session.ExpiresAt,
		})
	}
}

// Login exchanges credentials for a session.
func Login(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload loginPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := svc.Login(ctx, auth.LoginInput{
			Email:    payload.Email,
			Password: payload.Password,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionDTO{
			User:        toUserDTO(session.User),
			AccessToken: session.AccessToken,
			ExpiresAt:   session.ExpiresAt,
		})
	}
}
