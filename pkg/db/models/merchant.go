package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MerchantCategory groups merchants by trade, e.g. "bakery" or "electronics".
type MerchantCategory struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Slug        string    `gorm:"column:slug;not null;uniqueIndex:ux_merchant_categories_slug"`
	Description *string   `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *MerchantCategory) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Merchant is a shop run by one customer account. Products may belong to a merchant.
type Merchant struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID     uuid.UUID `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:ux_merchants_owner"`
	CategoryID  uuid.UUID `gorm:"column:category_id;type:uuid;not null;index"`
	Name        string    `gorm:"column:name;not null"`
	Slug        string    `gorm:"column:slug;not null;uniqueIndex:ux_merchants_slug"`
	Description *string   `gorm:"column:description"`
	LogoURL     *string   `gorm:"column:logo_url"`
	CoverURL    *string   `gorm:"column:cover_url"`
	Address     *string   `gorm:"column:address"`
	Country     *string   `gorm:"column:country"`
	Phone       *string   `gorm:"column:phone"`
	Email       *string   `gorm:"column:email"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *Merchant) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}
