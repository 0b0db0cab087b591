package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowanmckenna/marketstead-backend/api/middleware"
	"github.com/rowanmckenna/marketstead-backend/internal/orders"
	"github.com/rowanmckenna/marketstead-backend/pkg/db/models"
	"github.com/rowanmckenna/marketstead-backend/pkg/enums"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
	"github.com/rowanmckenna/marketstead-backend/pkg/pagination"
)

type stubOrderService struct {
	placeInput  orders.PlaceOrderInput
	statusActor orders.Actor
	statusNext  enums.OrderStatus
	order       *models.Order
	err         error
}

func (s *stubOrderService) PlaceOrder(_ context.Context, input orders.PlaceOrderInput) (*models.Order, error) {
	s.placeInput = input
	return s.order, s.err
}

func (s *stubOrderService) UpdateStatus(_ context.Context, actor orders.Actor, _ uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	s.statusActor = actor
	s.statusNext = next
	return s.order, s.err
}

func (s *stubOrderService) GetForUser(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) ListForUser(context.Context, uuid.UUID, pagination.Params) ([]models.Order, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return []models.Order{*s.order}, "", nil
}

func (s *stubOrderService) ListForVendor(context.Context, uuid.UUID, pagination.Params) ([]models.Order, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return []models.Order{*s.order}, "", nil
}

func testOrder(userID uuid.UUID) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		Status:        enums.OrderStatusPending,
		PaymentMethod: "card",
		Subtotal:      decimal.RequireFromString("25.00"),
		Tax:           decimal.RequireFromString("5.00"),
		Shipping:      decimal.RequireFromString("5.99"),
		TotalAmount:   decimal.RequireFromString("35.99"),
	}
}

const placeOrderBody = `{
	"shipping_address": {
		"full_name": "Rowan McKenna",
		"line1": "1 Orchard Way",
		"city": "Leeds",
		"postal_code": "LS1 1AA",
		"country": "GB"
	},
	"payment_method": "card"
}`

func TestPlaceOrderRequiresAuth(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(placeOrderBody))
	rec := httptest.NewRecorder()
	PlaceOrder(&stubOrderService{}, testLogger())(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceOrderSuccess(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	stub := &stubOrderService{order: testOrder(userID)}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(placeOrderBody))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	PlaceOrder(stub, testLogger())(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, userID, stub.placeInput.UserID)
	assert.Equal(t, "card", stub.placeInput.PaymentMethod)
	assert.Equal(t, "Leeds", stub.placeInput.ShippingAddress.City)
	assert.Contains(t, rec.Body.String(), "35.99")
}

func TestPlaceOrderRejectsUnknownPaymentMethod(t *testing.T) {
	t.Parallel()

	body := strings.Replace(placeOrderBody, `"card"`, `"barter"`, 1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	PlaceOrder(&stubOrderService{}, testLogger())(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrderConflictPassthrough(t *testing.T) {
	t.Parallel()

	stub := &stubOrderService{
		err: pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithDetails(map[string]any{"requested": 5, "available": 2}),
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(placeOrderBody))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	PlaceOrder(stub, testLogger())(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "available")
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Parallel()

	vendorID := uuid.New()
	orderID := uuid.New()
	stub := &stubOrderService{order: testOrder(uuid.New())}

	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", orderID.String())

	ctx := middleware.WithUserID(context.Background(), vendorID)
	ctx = middleware.WithRole(ctx, enums.UserRoleVendor)
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/status",
		strings.NewReader(`{"status":"processing"}`))
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	UpdateOrderStatus(stub, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, vendorID, stub.statusActor.UserID)
	assert.Equal(t, enums.OrderStatusProcessing, stub.statusNext)
}

func TestUpdateOrderStatusRejectsBadID(t *testing.T) {
	t.Parallel()

	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", "not-a-uuid")

	ctx := middleware.WithUserID(context.Background(), uuid.New())
	ctx = middleware.WithRole(ctx, enums.UserRoleVendor)
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/not-a-uuid/status",
		strings.NewReader(`{"status":"processing"}`))
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	UpdateOrderStatus(&stubOrderService{}, testLogger())(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateOrderStatusRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", uuid.NewString())

	ctx := middleware.WithUserID(context.Background(), uuid.New())
	ctx = middleware.WithRole(ctx, enums.UserRoleVendor)
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/x/status",
		strings.NewReader(`{"status":"teleported"}`))
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	UpdateOrderStatus(&stubOrderService{}, testLogger())(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
