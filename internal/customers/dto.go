package customers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type RegisterRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Phone     *string `json:"phone,omitempty"`
}

// LoginRequest carries credentials. SessionKey is the anonymous cart session to claim, if any.
type LoginRequest struct {
	Email      string `json:"email" validate:"required"`
	Password   string `json:"password" validate:"required"`
	SessionKey string `json:"-"`
}

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	Customer    CustomerDTO `json:"customer"`
	CartClaimed bool        `json:"cart_claimed"`
}

// CustomerDTO is the public projection of a customer; it never carries the password hash.
type CustomerDTO struct {
	ID          uuid.UUID          `json:"id"`
	Email       string             `json:"email"`
	FirstName   string             `json:"first_name"`
	LastName    string             `json:"last_name"`
	Phone       *string            `json:"phone,omitempty"`
	Role        enums.CustomerRole `json:"role"`
	LastLoginAt *time.Time         `json:"last_login_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

func FromModel(c *models.Customer) CustomerDTO {
	if c == nil {
		return CustomerDTO{}
	}
	return CustomerDTO{
		ID:          c.ID,
		Email:       c.Email,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Phone:       c.Phone,
		Role:        c.Role,
		LastLoginAt: c.LastLoginAt,
		CreatedAt:   c.CreatedAt,
	}
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ConfirmPasswordResetRequest sets a new password using a token from a reset email.
type ConfirmPasswordResetRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}
