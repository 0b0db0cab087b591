package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rowanmckenna/marketstead-backend/internal/cart"
	"github.com/rowanmckenna/marketstead-backend/internal/catalog"
	"github.com/rowanmckenna/marketstead-backend/internal/pricing"
	"github.com/rowanmckenna/marketstead-backend/pkg/config"
	"github.com/rowanmckenna/marketstead-backend/pkg/db"
	"github.com/rowanmckenna/marketstead-backend/pkg/db/models"
	"github.com/rowanmckenna/marketstead-backend/pkg/enums"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
	"github.com/rowanmckenna/marketstead-backend/pkg/pagination"
	"github.com/rowanmckenna/marketstead-backend/pkg/types"
)

const (
	placeOrderMaxRetries     = 3
	placeOrderInitialBackoff = 25 * time.Millisecond
)

// TxRunner abstracts the transactional boundary so tests can supply their own.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Actor identifies who is driving a status change.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// PlaceOrderInput carries a validated checkout request.
type PlaceOrderInput struct {
	UserID          uuid.UUID
	ShippingAddress types.Address
	PaymentMethod   string
}

// ServiceParams groups dependencies for the order service.
type ServiceParams struct {
	Tx          TxRunner
	OrderRepo   *Repository
	CartRepo    *cart.Repository
	ProductRepo *catalog.ProductRepository
	Pricing     config.PricingConfig
}

// Service exposes the order engine: checkout and the status machine.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error)
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
}

type service struct {
	tx          TxRunner
	orderRepo   *Repository
	cartRepo    *cart.Repository
	productRepo *catalog.ProductRepository
	pricingCfg  config.PricingConfig
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tx runner is required")
	}
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order repo is required")
	}
	if params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repo is required")
	}
	if params.ProductRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	return &service{
		tx:          params.Tx,
		orderRepo:   params.OrderRepo,
		cartRepo:    params.CartRepo,
		productRepo: params.ProductRepo,
		pricingCfg:  params.Pricing,
	}, nil
}

// PlaceOrder turns the user's cart into an order. Stock decrements, totals,
// order creation and cart clearing all commit together or not at all. The
// transaction is retried on Postgres serialization conflicts; any business
// failure surfaces unchanged.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}
	if !input.ShippingAddress.Complete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}
	if strings.TrimSpace(input.PaymentMethod) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}

	var order *models.Order
	backoff := retry.WithMaxRetries(placeOrderMaxRetries, retry.NewExponential(placeOrderInitialBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		placed, txErr := s.placeOrderTx(ctx, input)
		if txErr != nil {
			if db.IsSerializationFailure(txErr) {
				return retry.RetryableError(txErr)
			}
			return txErr
		}
		order = placed
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
	}
	return order, nil
}

func (s *service) placeOrderTx(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		userCart, err := cartRepo.FindByUserID(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		items, err := cartRepo.ListItems(ctx, userCart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		ids := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ProductID)
		}
		productsByID, err := productRepo.FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}

		lines := make([]pricing.Line, 0, len(items))
		snapshots := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			product, ok := productsByID[item.ProductID]
			if !ok || !product.IsActive {
				return stockConflict(item.ProductID, item.Quantity, 0)
			}

			// The WHERE guard on the decrement is the oversell barrier;
			// losers of a concurrent race land here with ok=false.
			decremented, err := productRepo.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !decremented {
				current, loadErr := productRepo.FindByID(ctx, item.ProductID)
				available := 0
				if loadErr == nil {
					available = current.Quantity
				}
				return stockConflict(item.ProductID, item.Quantity, available)
			}

			lines = append(lines, pricing.Line{UnitPrice: product.Price, Quantity: item.Quantity})
			snapshots = append(snapshots, models.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Price:       product.Price,
				Quantity:    item.Quantity,
				Subtotal:    product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2),
			})
		}

		quote := pricing.Calculate(lines, s.pricingCfg)
		order = &models.Order{
			UserID:          input.UserID,
			Status:          enums.OrderStatusPending,
			ShippingAddress: input.ShippingAddress,
			PaymentMethod:   strings.TrimSpace(input.PaymentMethod),
			Subtotal:        quote.Subtotal,
			Tax:             quote.Tax,
			Shipping:        quote.Shipping,
			TotalAmount:     quote.Total,
			Items:           snapshots,
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if err := cartRepo.DeleteAllItems(ctx, userCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus advances the order along the lifecycle. Only vendors with a
// product in the order and admins may drive it; illegal jumps are rejected
// with the current and attempted statuses attached. Cancellation does not
// restore stock.
func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	switch actor.Role {
	case enums.UserRoleAdmin:
	case enums.UserRoleVendor:
		involved, err := s.orderRepo.ContainsVendorProduct(ctx, orderID, actor.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check vendor involvement")
		}
		if !involved {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not contain your products")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only vendors and admins can update order status")
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invalid status transition").WithDetails(map[string]any{
			"current":   order.Status,
			"attempted": next,
		})
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, orderID, order.Status, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update status")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently").WithDetails(map[string]any{
			"attempted": next,
		})
	}

	order.Status = next
	return order, nil
}

// GetForUser loads one of the user's own orders.
func (s *service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	return s.orderRepo.ListForUser(ctx, userID, params)
}

func (s *service) ListForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	return s.orderRepo.ListForVendor(ctx, vendorID, params)
}

func stockConflict(productID uuid.UUID, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").WithDetails(map[string]any{
		"product_id": productID,
		"requested":  requested,
		"available":  available,
	})
}
