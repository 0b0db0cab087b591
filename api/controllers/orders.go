package controllers

import (
	"net/http"

	"github.com/rowanmckenna/marketstead-backend/api/middleware"
	"github.com/rowanmckenna/marketstead-backend/api/responses"
	"github.com/rowanmckenna/marketstead-backend/api/validators"
	"github.com/rowanmckenna/marketstead-backend/internal/orders"
	"github.com/rowanmckenna/marketstead-backend/pkg/enums"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
	"github.com/rowanmckenna/marketstead-backend/pkg/logger"
	"github.com/rowanmckenna/marketstead-backend/pkg/pagination"
	"github.com/rowanmckenna/marketstead-backend/pkg/types"
)

type placeOrderPayload struct {
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
	PaymentMethod   string        `json:"payment_method" validate:"required,oneof=card cash_on_delivery bank_transfer"`
}

type updateOrderStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}

// PlaceOrder converts the caller's cart into an order.
func PlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := authedUser(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload placeOrderPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.PlaceOrder(ctx, orders.PlaceOrderInput{
			UserID:          userID,
			ShippingAddress: payload.ShippingAddress,
			PaymentMethod:   payload.PaymentMethod,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderDTO(order))
	}
}

// ListOrders returns the caller's order history, newest first.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := authedUser(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, nextCursor, err := svc.ListForUser(ctx, userID, pagination.FromQuery(r.URL.Query()))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"orders":      toOrderDTOs(list),
			"next_cursor": nextCursor,
		})
	}
}

// GetOrder returns one of the caller's orders with its item snapshots.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := authedUser(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := validators.UUIDParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.GetForUser(ctx, userID, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toOrderDTO(order))
	}
}

// ListVendorOrders returns orders containing at least one of the vendor's
// products.
func ListVendorOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		vendorID, err := authedUser(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, nextCursor, err := svc.ListForVendor(ctx, vendorID, pagination.FromQuery(r.URL.Query()))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"orders":      toOrderDTOs(list),
			"next_cursor": nextCursor,
		})
	}
}

// UpdateOrderStatus advances the order state machine. Vendors may only touch
// orders holding their products; admins may touch any.
func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		role, ok := middleware.RoleFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		orderID, err := validators.UUIDParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateOrderStatusPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.UpdateStatus(ctx, orders.Actor{UserID: userID, Role: role}, orderID, enums.OrderStatus(payload.Status))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toOrderDTO(order))
	}
}
