package wishlist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rowanmckenna/marketstead-backend/pkg/db/models"
	"github.com/rowanmckenna/marketstead-backend/pkg/pagination"
)

// Entry is a wishlist row joined with its product's live data.
type Entry struct {
	ProductID   uuid.UUID       `json:"product_id" gorm:"column:product_id"`
	Name        string          `json:"name" gorm:"column:name"`
	Slug        string          `json:"slug" gorm:"column:slug"`
	Price       decimal.Decimal `json:"price" gorm:"column:price"`
	IsActive    bool            `json:"is_active" gorm:"column:is_active"`
	SavedAt     time.Time       `json:"saved_at" gorm:"column:saved_at"`
}

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddItem inserts a wishlist entry and ignores duplicates.
func (r *Repository) AddItem(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil || productID == uuid.Nil {
		return gorm.ErrInvalidValue
	}
	return r.db.WithContext(ctx).
		Exec(`INSERT INTO wishlist_items (id, user_id, product_id, created_at) VALUES (?, ?, ?, ?) ON CONFLICT (user_id, product_id) DO NOTHING`,
			uuid.New(), userID, productID, time.Now().UTC()).
		Error
}

// RemoveItem deletes the entry if it exists.
func (r *Repository) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{}).
		Error
}

// ListItems returns a page of saved products joined with live product data,
// newest saves first.
func (r *Repository) ListItems(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]Entry, string, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Table("wishlist_items wi").
		Select("wi.id AS wishlist_id, wi.created_at AS wishlist_created_at, wi.created_at AS saved_at, p.id AS product_id, p.name, p.slug, p.price, p.is_active").
		Joins("JOIN products p ON p.id = wi.product_id").
		Where("wi.user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(wi.created_at < ?) OR (wi.created_at = ? AND wi.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	type record struct {
		Entry
		WishlistID        uuid.UUID `gorm:"column:wishlist_id"`
		WishlistCreatedAt time.Time `gorm:"column:wishlist_created_at"`
	}

	var records []record
	err = query.
		Order("wi.created_at DESC").Order("wi.id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Scan(&records).
		Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(records) > normalizedLimit {
		records = records[:normalizedLimit]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.WishlistCreatedAt,
			ID:        last.WishlistID,
		})
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, rec.Entry)
	}
	return entries, nextCursor, nil
}

// Contains reports whether the user has saved the product.
func (r *Repository) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).
		Error
	return count > 0, err
}
