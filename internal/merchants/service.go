package merchants

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productCreator interface {
	Create(ctx context.Context, input catalog.CreateProductInput) (*catalog.ProductDTO, error)
}

// Service exposes merchant onboarding, category management and the merchant dashboard.
type Service interface {
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	CreateProductCategory(ctx context.Context, input CreateProductCategoryInput) (*ProductCategoryDTO, error)
	ListProductCategories(ctx context.Context, merchantCategoryID *uuid.UUID) ([]ProductCategoryDTO, error)
	Register(ctx context.Context, ownerID uuid.UUID, input RegisterInput) (*MerchantDTO, error)
	GetBySlug(ctx context.Context, slug string) (*MerchantDTO, error)
	CreateProduct(ctx context.Context, ownerID uuid.UUID, input catalog.CreateProductInput) (*catalog.ProductDTO, error)
	Dashboard(ctx context.Context, ownerID uuid.UUID) (*DashboardDTO, error)
}

type service struct {
	tx       txRunner
	repo     *Repository
	products productCreator
	now      func() time.Time
}

func NewService(tx txRunner, repo *Repository, products productCreator, now func() time.Time) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("merchant repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product creator required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{tx: tx, repo: repo, products: products, now: now}, nil
}

func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	name, slug, err := nameAndSlug(input.Name)
	if err != nil {
		return nil, err
	}
	category := &models.MerchantCategory{Name: name, Slug: slug, Description: input.Description}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "ux_merchant_categories_slug", "merchant_categories.slug") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a merchant category with this slug already exists").
				WithDetails(map[string]any{"slug": slug})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create merchant category")
	}
	dto := categoryFromModel(*category)
	return &dto, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list merchant categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, c := range rows {
		out = append(out, categoryFromModel(c))
	}
	return out, nil
}

func (s *service) CreateProductCategory(ctx context.Context, input CreateProductCategoryInput) (*ProductCategoryDTO, error) {
	name, slug, err := nameAndSlug(input.Name)
	if err != nil {
		return nil, err
	}
	if input.MerchantCategoryID != nil {
		if _, err := s.loadCategory(ctx, *input.MerchantCategoryID); err != nil {
			return nil, err
		}
	}
	category := &models.ProductCategory{
		Name:               name,
		Slug:               slug,
		Description:        input.Description,
		MerchantCategoryID: input.MerchantCategoryID,
	}
	if err := s.repo.CreateProductCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "ux_product_categories_slug", "product_categories.slug") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a product category with this slug already exists").
				WithDetails(map[string]any{"slug": slug})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product category")
	}
	dto := productCategoryFromModel(*category)
	return &dto, nil
}

func (s *service) ListProductCategories(ctx context.Context, merchantCategoryID *uuid.UUID) ([]ProductCategoryDTO, error) {
	rows, err := s.repo.ListProductCategories(ctx, merchantCategoryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list product categories")
	}
	out := make([]ProductCategoryDTO, 0, len(rows))
	for _, c := range rows {
		out = append(out, productCategoryFromModel(c))
	}
	return out, nil
}

// Register opens the owner's merchant and copies the contact name onto their
// account in the same transaction. An owner runs at most one merchant.
func (s *service) Register(ctx context.Context, ownerID uuid.UUID, input RegisterInput) (*MerchantDTO, error) {
	name, slug, err := nameAndSlug(input.Name)
	if err != nil {
		return nil, err
	}
	firstName := strings.TrimSpace(input.ContactFirstName)
	lastName := strings.TrimSpace(input.ContactLastName)
	if firstName == "" || lastName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact first and last name are required")
	}
	if _, err := s.loadCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	merchant := &models.Merchant{
		OwnerID:     ownerID,
		CategoryID:  input.CategoryID,
		Name:        name,
		Slug:        slug,
		Description: input.Description,
		LogoURL:     input.LogoURL,
		CoverURL:    input.CoverURL,
		Address:     input.Address,
		Country:     input.Country,
		Phone:       input.Phone,
		Email:       input.Email,
		IsActive:    true,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, merchant); err != nil {
			return err
		}
		return repo.SyncOwnerName(ctx, ownerID, firstName, lastName)
	})
	if err != nil {
		switch {
		case db.IsUniqueViolation(err, "ux_merchants_owner", "merchants.owner_id"):
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "customer already runs a merchant")
		case db.IsUniqueViolation(err, "ux_merchants_slug", "merchants.slug"):
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a merchant with this slug already exists").
				WithDetails(map[string]any{"slug": slug})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register merchant")
	}
	dto := FromModel(merchant)
	return &dto, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*MerchantDTO, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	merchant, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load merchant")
	}
	if !merchant.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
	}
	dto := FromModel(merchant)
	return &dto, nil
}

// CreateProduct lists a product under the owner's merchant.
func (s *service) CreateProduct(ctx context.Context, ownerID uuid.UUID, input catalog.CreateProductInput) (*catalog.ProductDTO, error) {
	merchant, err := s.ownedMerchant(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	input.MerchantID = &merchant.ID
	return s.products.Create(ctx, input)
}

// Dashboard counts the owner's products, the orders that include them, and
// how many of those orders were placed since midnight UTC.
func (s *service) Dashboard(ctx context.Context, ownerID uuid.UUID) (*DashboardDTO, error) {
	merchant, err := s.ownedMerchant(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.CountProducts(ctx, merchant.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count merchant products")
	}
	orders, err := s.repo.CountOrders(ctx, merchant.ID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count merchant orders")
	}
	midnight := s.now().UTC().Truncate(24 * time.Hour)
	today, err := s.repo.CountOrders(ctx, merchant.ID, &midnight)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count merchant orders")
	}
	return &DashboardDTO{
		Merchant:      FromModel(merchant),
		TotalProducts: products,
		TotalOrders:   orders,
		OrdersToday:   today,
	}, nil
}

func (s *service) ownedMerchant(ctx context.Context, ownerID uuid.UUID) (*models.Merchant, error) {
	merchant, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer does not run a merchant")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load merchant")
	}
	return merchant, nil
}

func (s *service) loadCategory(ctx context.Context, id uuid.UUID) (*models.MerchantCategory, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant category is required")
	}
	category, err := s.repo.FindCategory(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown merchant category").
				WithDetails(map[string]any{"field": "category_id"})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load merchant category")
	}
	return category, nil
}

func nameAndSlug(raw string) (string, string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	slug := catalog.Slugify(name)
	if slug == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "name must contain letters or digits")
	}
	return name, slug, nil
}
