package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductCategory classifies products. MerchantCategoryID optionally ties the
// category to the merchant trade it belongs to.
type ProductCategory struct {
	ID                 uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name               string     `gorm:"column:name;not null"`
	Slug               string     `gorm:"column:slug;not null;uniqueIndex:ux_product_categories_slug"`
	Description        *string    `gorm:"column:description"`
	MerchantCategoryID *uuid.UUID `gorm:"column:merchant_category_id;type:uuid;index"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *ProductCategory) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
