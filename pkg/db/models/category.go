package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category groups products. Nesting is limited to one level: a subcategory's
// parent must itself be a top-level category.
type Category struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name          string     `gorm:"column:name;type:text;not null"`
	Slug          string     `gorm:"column:slug;type:text;not null;uniqueIndex"`
	ParentID      *uuid.UUID `gorm:"column:parent_id;type:uuid"`
	IsSubcategory bool       `gorm:"column:is_subcategory;not null;default:false"`
	Parent        *Category  `gorm:"foreignKey:ParentID"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
