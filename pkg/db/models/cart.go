package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is a pending selection owned by a customer, an anonymous session, or both
// once a session cart has been claimed at login.
type Cart struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID *uuid.UUID `gorm:"column:customer_id;type:uuid;index"`
	SessionKey *string    `gorm:"column:session_key;index"`
	CouponID   *uuid.UUID `gorm:"column:coupon_id;type:uuid"`
	Coupon     *Coupon    `gorm:"foreignKey:CouponID"`
	Items      []LineItem `gorm:"foreignKey:CartID"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}
