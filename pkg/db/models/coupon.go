package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coupon is a percentage discount code. Discount is a fraction in [0,1].
type Coupon struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Label     string          `gorm:"column:label;not null"`
	Code      string          `gorm:"column:code;not null;uniqueIndex:ux_coupons_code"`
	IsActive  bool            `gorm:"column:is_active;not null"`
	ExpiresOn time.Time       `gorm:"column:expires_on;type:date;not null"`
	Discount  decimal.Decimal `gorm:"column:discount;type:numeric(5,4);not null"`
	MaxUses   *int            `gorm:"column:max_uses"`
	UsedCount int             `gorm:"column:used_count;not null;default:0"`
	Products  []Product       `gorm:"many2many:coupon_products;"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}
