package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog listing. Prices are integer amounts in the smallest currency unit.
// MerchantCategoryID is copied from the owning merchant at creation.
type Product struct {
	ID                 uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name               string     `gorm:"column:name;not null"`
	Slug               string     `gorm:"column:slug;not null;uniqueIndex:ux_products_slug"`
	Description        *string    `gorm:"column:description"`
	Price              int        `gorm:"column:price;not null"`
	PromotionalPrice   *int       `gorm:"column:promotional_price"`
	PromoStartsOn      *time.Time `gorm:"column:promo_starts_on;type:date"`
	PromoEndsOn        *time.Time `gorm:"column:promo_ends_on;type:date"`
	MerchantID         *uuid.UUID `gorm:"column:merchant_id;type:uuid;index"`
	CategoryID         *uuid.UUID `gorm:"column:category_id;type:uuid;index"`
	MerchantCategoryID *uuid.UUID `gorm:"column:merchant_category_id;type:uuid"`
	IsActive           bool       `gorm:"column:is_active;not null"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return nil
}
