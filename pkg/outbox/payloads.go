package outbox

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreatedEvent is the data carried by an order_created event.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID          `json:"orderId"`
	CustomerID     uuid.UUID          `json:"customerId"`
	TransactionID  string             `json:"transactionId"`
	PaymentID      *string            `json:"paymentId,omitempty"`
	SubtotalPrice  int                `json:"subtotalPrice"`
	DiscountAmount int                `json:"discountAmount"`
	TotalPrice     int                `json:"totalPrice"`
	CouponCode     *string            `json:"couponCode,omitempty"`
	NotifyURL      string             `json:"notifyUrl"`
	Items          []OrderCreatedItem `json:"items"`
}

type OrderCreatedItem struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	UnitPrice int       `json:"unitPrice"`
}

// PasswordResetRequestedEvent carries the one-time token a mailer sends to the customer.
type PasswordResetRequestedEvent struct {
	CustomerID uuid.UUID `json:"customerId"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expiresAt"`
}
