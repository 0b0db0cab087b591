package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a vendor listing. Quantity is the live stock counter and
// is only decremented through the conditional update in the catalog repository.
type Product struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	VendorID       uuid.UUID        `gorm:"column:vendor_id;type:uuid;not null;index"`
	CategoryID     uuid.UUID        `gorm:"column:category_id;type:uuid;not null;index"`
	Name           string           `gorm:"column:name;type:text;not null"`
	Slug           string           `gorm:"column:slug;type:text;not null;uniqueIndex"`
	Description    string           `gorm:"column:description;type:text"`
	Images         pq.StringArray   `gorm:"column:images;type:text[]"`
	Price          decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	CompareAtPrice *decimal.Decimal `gorm:"column:compare_at_price;type:numeric(12,2)"`
	Quantity       int              `gorm:"column:quantity;not null;default:0"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// DiscountVisible reports whether the compare-at price should be shown:
// only when it is strictly greater than the selling price.
func (p *Product) DiscountVisible() bool {
	return p.CompareAtPrice != nil && p.CompareAtPrice.GreaterThan(p.Price)
}
