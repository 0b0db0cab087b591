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
	"github.com/rowanmckenna/marketstead-backend/internal/cart"
	"github.com/rowanmckenna/marketstead-backend/internal/pricing"
	"github.com/rowanmckenna/marketstead-backend/pkg/db/models"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
)

type stubCartService struct {
	addedProduct uuid.UUID
	addedQty     int
	removed      uuid.UUID
	cleared      bool
	err          error
}

func (s *stubCartService) GetOrCreateCart(context.Context, uuid.UUID) (*models.Cart, error) {
	return &models.Cart{ID: uuid.New()}, s.err
}

func (s *stubCartService) AddItem(_ context.Context, _, productID uuid.UUID, qty int) error {
	s.addedProduct = productID
	s.addedQty = qty
	return s.err
}

func (s *stubCartService) UpdateItemQuantity(_ context.Context, _, productID uuid.UUID, qty int) error {
	s.addedProduct = productID
	s.addedQty = qty
	return s.err
}

func (s *stubCartService) RemoveItem(_ context.Context, _, productID uuid.UUID) error {
	s.removed = productID
	return s.err
}

func (s *stubCartService) ClearCart(context.Context, uuid.UUID) error {
	s.cleared = true
	return s.err
}

func (s *stubCartService) GetCartView(context.Context, uuid.UUID) (*cart.View, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &cart.View{
		CartID: uuid.New(),
		Items:  []cart.ViewItem{},
		Totals: pricing.Quote{
			Subtotal: decimal.RequireFromString("25.00"),
			Tax:      decimal.RequireFromString("5.00"),
			Shipping: decimal.RequireFromString("5.99"),
			Total:    decimal.RequireFromString("35.99"),
		},
	}, nil
}

func TestGetCartRequiresAuth(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	GetCart(&stubCartService{}, testLogger())(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddCartItem(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	stub := &stubCartService{}

	body := `{"product_id":"` + productID.String() + `","quantity":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	AddCartItem(stub, testLogger())(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, productID, stub.addedProduct)
	assert.Equal(t, 3, stub.addedQty)
	assert.Contains(t, rec.Body.String(), "35.99")
}

func TestAddCartItemValidation(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"zero quantity":     `{"product_id":"` + uuid.NewString() + `","quantity":0}`,
		"negative quantity": `{"product_id":"` + uuid.NewString() + `","quantity":-1}`,
		"missing product":   `{"quantity":1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
			req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
			rec := httptest.NewRecorder()
			AddCartItem(&stubCartService{}, testLogger())(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAddCartItemStockConflict(t *testing.T) {
	t.Parallel()

	stub := &stubCartService{
		err: pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithDetails(map[string]any{"requested": 9, "available": 4}),
	}
	body := `{"product_id":"` + uuid.NewString() + `","quantity":9}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	AddCartItem(stub, testLogger())(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "requested")
}

func TestRemoveCartItem(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	stub := &stubCartService{}

	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("productId", productID.String())
	ctx := middleware.WithUserID(context.Background(), uuid.New())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/"+productID.String(), nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	RemoveCartItem(stub, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, productID, stub.removed)
}

func TestClearCart(t *testing.T) {
	t.Parallel()

	stub := &stubCartService{}
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	ClearCart(stub, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, stub.cleared)
}
