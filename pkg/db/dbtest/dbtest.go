// Package dbtest opens throwaway SQLite databases migrated with the storefront
// models and seeds common fixtures.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Open returns a migrated in-memory database private to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// Client wraps Open in a db.Client for services that need WithTx.
func Client(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.Wrap(conn), conn
}

func MustCreateProduct(t *testing.T, conn *gorm.DB, price int, opts ...func(*models.Product)) *models.Product {
	t.Helper()
	name := "Product " + uuid.NewString()[:8]
	product := &models.Product{
		Name:     name,
		Slug:     fmt.Sprintf("product-%s", uuid.NewString()),
		Price:    price,
		IsActive: true,
	}
	for _, opt := range opts {
		opt(product)
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// WithPromotion sets a promotional price valid between from and to inclusive.
func WithPromotion(promo int, from, to time.Time) func(*models.Product) {
	return func(p *models.Product) {
		p.PromotionalPrice = &promo
		p.PromoStartsOn = &from
		p.PromoEndsOn = &to
	}
}

func MustCreateCustomer(t *testing.T, conn *gorm.DB) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		Email:        fmt.Sprintf("sf_test_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "Customer",
		Role:         enums.CustomerRoleCustomer,
		IsActive:     true,
	}
	if err := conn.Create(customer).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return customer
}

func MustCreateCoupon(t *testing.T, conn *gorm.DB, code string, discount string, opts ...func(*models.Coupon)) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		Label:     "Coupon " + code,
		Code:      code,
		IsActive:  true,
		ExpiresOn: time.Now().UTC().AddDate(0, 1, 0),
		Discount:  decimal.RequireFromString(discount),
	}
	for _, opt := range opts {
		opt(coupon)
	}
	if err := conn.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon: %v", err)
	}
	return coupon
}

func MustCreateMerchantCategory(t *testing.T, conn *gorm.DB, name string) *models.MerchantCategory {
	t.Helper()
	category := &models.MerchantCategory{Name: name, Slug: fmt.Sprintf("%s-%s", name, uuid.NewString()[:8])}
	if err := conn.Create(category).Error; err != nil {
		t.Fatalf("create merchant category: %v", err)
	}
	return category
}

func MustCreateProductCategory(t *testing.T, conn *gorm.DB, name string, merchantCategoryID *uuid.UUID) *models.ProductCategory {
	t.Helper()
	category := &models.ProductCategory{
		Name:               name,
		Slug:               fmt.Sprintf("%s-%s", name, uuid.NewString()[:8]),
		MerchantCategoryID: merchantCategoryID,
	}
	if err := conn.Create(category).Error; err != nil {
		t.Fatalf("create product category: %v", err)
	}
	return category
}

// MustCreateMerchant opens an active merchant owned by owner in a fresh category.
func MustCreateMerchant(t *testing.T, conn *gorm.DB, owner *models.Customer) *models.Merchant {
	t.Helper()
	category := MustCreateMerchantCategory(t, conn, "shop")
	merchant := &models.Merchant{
		OwnerID:    owner.ID,
		CategoryID: category.ID,
		Name:       "Merchant " + uuid.NewString()[:8],
		Slug:       fmt.Sprintf("merchant-%s", uuid.NewString()),
		IsActive:   true,
	}
	if err := conn.Create(merchant).Error; err != nil {
		t.Fatalf("create merchant: %v", err)
	}
	return merchant
}
