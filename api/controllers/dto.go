package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rowanmckenna/marketstead-backend/pkg/db/models"
	"github.com/rowanmckenna/marketstead-backend/pkg/enums"
	"github.com/rowanmckenna/marketstead-backend/pkg/types"
)

// userDTO is the public user shape. The password hash never leaves the server.
type userDTO struct {
	ID          uuid.UUID      `json:"id"`
	Username    string         `json:"username"`
	Email       string         `json:"email"`
	Role        enums.UserRole `json:"role"`
	IsActive    bool           `json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toUserDTO(user *models.User) userDTO {
	return userDTO{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Role:        user.Role,
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

type sessionDTO struct {
	User        userDTO   `json:"user"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type productDTO struct {
	ID             uuid.UUID        `json:"id"`
	VendorID       uuid.UUID        `json:"vendor_id"`
	CategoryID     uuid.UUID        `json:"category_id"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	Description    string           `json:"description,omitempty"`
	Images         []string         `json:"images,omitempty"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price,omitempty"`
	Quantity       int              `json:"quantity"`
	IsActive       bool             `json:"is_active"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func toProductDTO(product *models.Product) productDTO {
	dto := productDTO{
		ID:          product.ID,
		VendorID:    product.VendorID,
		CategoryID:  product.CategoryID,
		Name:        product.Name,
		Slug:        product.Slug,
		Description: product.Description,
		Images:      product.Images,
		Price:       product.Price,
		Quantity:    product.Quantity,
		IsActive:    product.IsActive,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
	if product.DiscountVisible() {
		dto.CompareAtPrice = product.CompareAtPrice
	}
	return dto
}

func toProductDTOs(products []models.Product) []productDTO {
	out := make([]productDTO, 0, len(products))
	for i := range products {
		out = append(out, toProductDTO(&products[i]))
	}
	return out
}

type categoryDTO struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	ParentID      *uuid.UUID `json:"parent_id,omitempty"`
	IsSubcategory bool       `json:"is_subcategory"`
}

func toCategoryDTO(category *models.Category) categoryDTO {
	return categoryDTO{
		ID:            category.ID,
		Name:          category.Name,
		Slug:          category.Slug,
		ParentID:      category.ParentID,
		IsSubcategory: category.IsSubcategory,
	}
}

type orderItemDTO struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type orderDTO struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	Status          enums.OrderStatus `json:"status"`
	ShippingAddress types.Address     `json:"shipping_address"`
	PaymentMethod   string            `json:"payment_method"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	Tax             decimal.Decimal   `json:"tax"`
	Shipping        decimal.Decimal   `json:"shipping"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	Items           []orderItemDTO    `json:"items,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

func toOrderDTO(order *models.Order) orderDTO {
	dto := orderDTO{
		ID:              order.ID,
		UserID:          order.UserID,
		Status:          order.Status,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		Subtotal:        order.Subtotal,
		Tax:             order.Tax,
		Shipping:        order.Shipping,
		TotalAmount:     order.TotalAmount,
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, orderItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal,
		})
	}
	return dto
}

func toOrderDTOs(orders []models.Order) []orderDTO {
	out := make([]orderDTO, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderDTO(&orders[i]))
	}
	return out
}

type reviewDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toReviewDTO(review *models.Review) reviewDTO {
	return reviewDTO{
		ID:        review.ID,
		UserID:    review.UserID,
		ProductID: review.ProductID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
	}
}

func toReviewDTOs(reviews []models.Review) []reviewDTO {
	out := make([]reviewDTO, 0, len(reviews))
	for i := range reviews {
		out = append(out, toReviewDTO(&reviews[i]))
	}
	return out
}
