package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is the immutable record produced by checkout.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID     uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	SubtotalPrice  int               `gorm:"column:subtotal_price;not null"`
	DiscountAmount int               `gorm:"column:discount_amount;not null"`
	TotalPrice     int               `gorm:"column:total_price;not null"`
	CouponCode     *string           `gorm:"column:coupon_code"`
	TransactionID  string            `gorm:"column:transaction_id;not null"`
	PaymentID      *string           `gorm:"column:payment_id"`
	NotifyURL      string            `gorm:"column:notify_url;not null"`
	ReturnURL      string            `gorm:"column:return_url;not null"`
	Status         enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Items          []LineItem        `gorm:"foreignKey:OrderID"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.Status == "" {
		o.Status = enums.OrderStatusActive
	}
	return nil
}
