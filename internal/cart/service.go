package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rowanmckenna/marketstead-backend/internal/catalog"
	"github.com/rowanmckenna/marketstead-backend/internal/pricing"
	"github.com/rowanmckenna/marketstead-backend/pkg/config"
	"github.com/rowanmckenna/marketstead-backend/pkg/db"
	"github.com/rowanmckenna/marketstead-backend/pkg/db/models"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
)

// View is the cart joined with live product data and current totals.
type View struct {
	CartID uuid.UUID     `json:"cart_id"`
	Items  []ViewItem    `json:"items"`
	Totals pricing.Quote `json:"totals"`
}

// ViewItem is one cart row priced from the live product. Unavailable rows
// (deleted or deactivated products) are kept visible but excluded from
// totals.
type ViewItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Unavailable bool            `json:"unavailable,omitempty"`
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	CartRepo    *Repository
	ProductRepo *catalog.ProductRepository
	Pricing     config.PricingConfig
}

// Service exposes the cart engine operations.
type Service interface {
	GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) error
	UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
	ClearCart(ctx context.Context, userID uuid.UUID) error
	GetCartView(ctx context.Context, userID uuid.UUID) (*View, error)
}

type service struct {
	cartRepo    *Repository
	productRepo *catalog.ProductRepository
	pricingCfg  config.PricingConfig
}

// NewService builds a cart service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repo is required")
	}
	if params.ProductRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	return &service{
		cartRepo:    params.CartRepo,
		productRepo: params.ProductRepo,
		pricingCfg:  params.Pricing,
	}, nil
}

// GetOrCreateCart returns the user's cart, creating it on first use. A lost
// creation race falls back to the winner's row.
func (s *service) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}

	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	cart = &models.Cart{UserID: userID}
	if createErr := s.cartRepo.Create(ctx, cart); createErr != nil {
		if db.IsUniqueViolation(createErr, "") {
			cart, err = s.cartRepo.FindByUserID(ctx, userID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart after race")
			}
			return cart, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create cart")
	}
	return cart, nil
}

// AddItem puts qty units of a product into the cart, merging with any
// existing row for the same product.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.loadSellableProduct(ctx, productID)
	if err != nil {
		return err
	}

	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}

	existingQty := 0
	if item, findErr := s.cartRepo.FindItem(ctx, cart.ID, productID); findErr == nil {
		existingQty = item.Quantity
	} else if !errors.Is(findErr, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load cart item")
	}

	if existingQty+qty > product.Quantity {
		return insufficientStock(productID, existingQty+qty, product.Quantity)
	}

	merged, err := s.cartRepo.IncrementItemQty(ctx, cart.ID, productID, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart item")
	}
	if merged {
		return nil
	}

	insertErr := s.cartRepo.InsertItem(ctx, &models.CartItem{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  qty,
	})
	if insertErr == nil {
		return nil
	}
	if db.IsUniqueViolation(insertErr, "") {
		// Concurrent insert won; merge into its row.
		if _, mergeErr := s.cartRepo.IncrementItemQty(ctx, cart.ID, productID, qty); mergeErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, mergeErr, "merge cart item after race")
		}
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, insertErr, "insert cart item")
}

// UpdateItemQuantity replaces the row's quantity outright.
func (s *service) UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.loadSellableProduct(ctx, productID)
	if err != nil {
		return err
	}
	if qty > product.Quantity {
		return insufficientStock(productID, qty, product.Quantity)
	}

	cart, err := s.requireCart(ctx, userID)
	if err != nil {
		return err
	}

	updated, err := s.cartRepo.SetItemQty(ctx, cart.ID, productID, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item is not in the cart")
	}
	return nil
}

// RemoveItem deletes the product's row; removing an absent item succeeds.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if _, err := s.cartRepo.DeleteItem(ctx, cart.ID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return nil
}

// ClearCart empties the cart; clearing a missing or empty cart succeeds.
func (s *service) ClearCart(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := s.cartRepo.DeleteAllItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// GetCartView joins the cart with live product data. Rows whose product has
// gone missing or inactive are flagged unavailable and priced at zero; they
// never break the view.
func (s *service) GetCartView(ctx context.Context, userID uuid.UUID) (*View, error) {
	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.cartRepo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	productsByID, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	view := &View{CartID: cart.ID, Items: make([]ViewItem, 0, len(items))}
	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		product, ok := productsByID[item.ProductID]
		if !ok || !product.IsActive {
			row := ViewItem{
				ProductID:   item.ProductID,
				Quantity:    item.Quantity,
				UnitPrice:   decimal.Zero,
				LineTotal:   decimal.Zero,
				Unavailable: true,
			}
			if ok {
				row.Name = product.Name
				row.Slug = product.Slug
			}
			view.Items = append(view.Items, row)
			continue
		}

		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.Items = append(view.Items, ViewItem{
			ProductID: item.ProductID,
			Name:      product.Name,
			Slug:      product.Slug,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			LineTotal: lineTotal.Round(2),
		})
		lines = append(lines, pricing.Line{UnitPrice: product.Price, Quantity: item.Quantity})
	}

	view.Totals = pricing.Calculate(lines, s.pricingCfg)
	return view, nil
}

func (s *service) requireCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item is not in the cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) loadSellableProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func insufficientStock(productID uuid.UUID, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").WithDetails(map[string]any{
		"product_id": productID,
		"requested":  requested,
		"available":  available,
	})
}
