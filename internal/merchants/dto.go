package merchants

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
}

type ProductCategoryDTO struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Slug               string     `json:"slug"`
	Description        *string    `json:"description,omitempty"`
	MerchantCategoryID *uuid.UUID `json:"merchant_category_id,omitempty"`
}

type MerchantDTO struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CategoryID  uuid.UUID `json:"category_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	LogoURL     *string   `json:"logo_url,omitempty"`
	CoverURL    *string   `json:"cover_url,omitempty"`
	Address     *string   `json:"address,omitempty"`
	Country     *string   `json:"country,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	Email       *string   `json:"email,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// DashboardDTO summarises a merchant's catalog and sales.
type DashboardDTO struct {
	Merchant      MerchantDTO `json:"merchant"`
	TotalProducts int64       `json:"total_products"`
	TotalOrders   int64       `json:"total_orders"`
	OrdersToday   int64       `json:"orders_today"`
}

type CreateCategoryInput struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description,omitempty"`
}

type CreateProductCategoryInput struct {
	Name               string     `json:"name" validate:"required,max=120"`
	Description        *string    `json:"description,omitempty"`
	MerchantCategoryID *uuid.UUID `json:"merchant_category_id,omitempty"`
}

// RegisterInput opens a merchant. The contact name is copied onto the owner's account.
type RegisterInput struct {
	Name             string    `json:"name" validate:"required,max=200"`
	CategoryID       uuid.UUID `json:"category_id" validate:"required"`
	ContactFirstName string    `json:"contact_first_name" validate:"required,max=100"`
	ContactLastName  string    `json:"contact_last_name" validate:"required,max=100"`
	Description      *string   `json:"description,omitempty"`
	LogoURL          *string   `json:"logo_url,omitempty" validate:"omitempty,url"`
	CoverURL         *string   `json:"cover_url,omitempty" validate:"omitempty,url"`
	Address          *string   `json:"address,omitempty"`
	Country          *string   `json:"country,omitempty"`
	Phone            *string   `json:"phone,omitempty"`
	Email            *string   `json:"email,omitempty" validate:"omitempty,email"`
}

func categoryFromModel(c models.MerchantCategory) CategoryDTO {
	return CategoryDTO{ID: c.ID, Name: c.Name, Slug: c.Slug, Description: c.Description}
}

func productCategoryFromModel(c models.ProductCategory) ProductCategoryDTO {
	return ProductCategoryDTO{
		ID:                 c.ID,
		Name:               c.Name,
		Slug:               c.Slug,
		Description:        c.Description,
		MerchantCategoryID: c.MerchantCategoryID,
	}
}

func FromModel(m *models.Merchant) MerchantDTO {
	return MerchantDTO{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		CategoryID:  m.CategoryID,
		Name:        m.Name,
		Slug:        m.Slug,
		Description: m.Description,
		LogoURL:     m.LogoURL,
		CoverURL:    m.CoverURL,
		Address:     m.Address,
		Country:     m.Country,
		Phone:       m.Phone,
		Email:       m.Email,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
	}
}
