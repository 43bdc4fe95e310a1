package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderSummary is the list view of an order.
type OrderSummary struct {
	ID             uuid.UUID         `json:"id"`
	Status         enums.OrderStatus `json:"status"`
	SubtotalPrice  int               `json:"subtotal_price"`
	DiscountAmount int               `json:"discount_amount"`
	TotalPrice     int               `json:"total_price"`
	CouponCode     *string           `json:"coupon_code,omitempty"`
	ItemCount      int               `json:"item_count"`
	CreatedAt      time.Time         `json:"created_at"`
}

type OrderItem struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   int       `json:"unit_price"`
	LineTotal   int       `json:"line_total"`
}

// OrderDetail adds line items and payment references to the summary.
type OrderDetail struct {
	OrderSummary
	TransactionID string      `json:"transaction_id"`
	PaymentID     *string     `json:"payment_id,omitempty"`
	ReturnURL     string      `json:"return_url"`
	Items         []OrderItem `json:"items"`
}

func NewOrderSummary(o models.Order) OrderSummary {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return OrderSummary{
		ID:             o.ID,
		Status:         o.Status,
		SubtotalPrice:  o.SubtotalPrice,
		DiscountAmount: o.DiscountAmount,
		TotalPrice:     o.TotalPrice,
		CouponCode:     o.CouponCode,
		ItemCount:      count,
		CreatedAt:      o.CreatedAt,
	}
}

func NewOrderDetail(o models.Order) OrderDetail {
	items := make([]OrderItem, 0, len(o.Items))
	for _, li := range o.Items {
		unit := 0
		if li.UnitPrice != nil {
			unit = *li.UnitPrice
		}
		items = append(items, OrderItem{
			ProductID:   li.ProductID,
			ProductName: li.Product.Name,
			Quantity:    li.Quantity,
			UnitPrice:   unit,
			LineTotal:   unit * li.Quantity,
		})
	}
	return OrderDetail{
		OrderSummary:  NewOrderSummary(o),
		TransactionID: o.TransactionID,
		PaymentID:     o.PaymentID,
		ReturnURL:     o.ReturnURL,
		Items:         items,
	}
}
