package cart

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Owner identifies who is acting on a cart: an authenticated customer, an
// anonymous session, or a customer that still carries its session key.
type Owner struct {
	CustomerID *uuid.UUID
	SessionKey string
}

// IsCustomer reports whether the owner is authenticated.
func (o Owner) IsCustomer() bool {
	return o.CustomerID != nil && *o.CustomerID != uuid.Nil
}

// IsZero reports whether neither a customer nor a session is present.
func (o Owner) IsZero() bool {
	return !o.IsCustomer() && strings.TrimSpace(o.SessionKey) == ""
}

// Owns reports whether c belongs to o. A cart held by a customer is only
// reachable by that customer; an unclaimed cart is reachable by its session.
func (o Owner) Owns(c models.Cart) bool {
	if c.CustomerID != nil {
		return o.IsCustomer() && *c.CustomerID == *o.CustomerID
	}
	return c.SessionKey != nil && o.SessionKey != "" && *c.SessionKey == o.SessionKey
}
