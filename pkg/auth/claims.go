package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type AccessTokenPayload struct {
	CustomerID uuid.UUID
	Role       enums.CustomerRole
	// JTI is generated when empty.
	JTI string
}

type AccessTokenClaims struct {
	CustomerID uuid.UUID          `json:"customer_id"`
	Role       enums.CustomerRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims checks during parsing.
func (c AccessTokenClaims) Validate() error {
	if c.CustomerID == uuid.Nil {
		return errors.New("token missing customer id")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid customer role %q", c.Role)
	}
	return nil
}
