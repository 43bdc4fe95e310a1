package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Customer is a registered shopper or staff account.
type Customer struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Email        string             `gorm:"column:email;not null;uniqueIndex:ux_customers_email"`
	PasswordHash string             `gorm:"column:password_hash;not null"`
	FirstName    string             `gorm:"column:first_name;not null"`
	LastName     string             `gorm:"column:last_name;not null"`
	Phone        *string            `gorm:"column:phone"`
	Role         enums.CustomerRole `gorm:"column:role;type:text;not null"`
	IsActive     bool               `gorm:"column:is_active;not null"`
	LastLoginAt  *time.Time         `gorm:"column:last_login_at"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Role == "" {
		c.Role = enums.CustomerRoleCustomer
	}
	return nil
}
