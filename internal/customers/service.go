package customers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service handles customer registration, login and password resets.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*CustomerDTO, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*CustomerDTO, error)
	RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error
	ConfirmPasswordReset(ctx context.Context, req ConfirmPasswordResetRequest) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartClaimer interface {
	ClaimSessionCart(ctx context.Context, sessionKey string, customerID uuid.UUID) (bool, error)
}

// ServiceParams bundles the dependencies required to build a customers service.
type ServiceParams struct {
	TxRunner       txRunner
	Repository     *Repository
	Outbox         outbox.Emitter
	Carts          cartClaimer
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
	Now            func() time.Time
}

type service struct {
	tx          txRunner
	repo        *Repository
	outbox      outbox.Emitter
	carts       cartClaimer
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("customer repository is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:          params.TxRunner,
		repo:        params.Repository,
		outbox:      params.Outbox,
		carts:       params.Carts,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
		now:         now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*CustomerDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}
	if len(req.Password) < security.MinPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is too short").
			WithDetails(map[string]any{"min_length": security.MinPasswordLength})
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	customer := &models.Customer{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        req.Phone,
		Role:         enums.CustomerRoleCustomer,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		if db.IsUniqueViolation(err, "ux_customers_email", "customers.email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create customer")
	}
	dto := FromModel(customer)
	return &dto, nil
}

// Login verifies credentials, mints an access token and claims the caller's
// anonymous cart when a session key is supplied.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	customer, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, customer.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	customer.LastLoginAt = &now
	s.maybeRehash(ctx, customer, req.Password)

	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		CustomerID: customer.ID,
		Role:       customer.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	claimed := false
	if key := strings.TrimSpace(req.SessionKey); key != "" && s.carts != nil {
		claimed, err = s.carts.ClaimSessionCart(ctx, key, customer.ID)
		if err != nil {
			return nil, err
		}
	}

	return &LoginResponse{
		AccessToken: token,
		ExpiresAt:   now.Add(s.jwtCfg.TTL()),
		Customer:    FromModel(customer),
		CartClaimed: claimed,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CustomerDTO, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
	}
	dto := FromModel(customer)
	return &dto, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.Customer, error) {
	input := strings.TrimSpace(email)
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	customer, err := s.repo.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
	}

	valid, err := security.VerifyPassword(password, customer.PasswordHash)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if !valid || !customer.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return customer, nil
}

// maybeRehash upgrades a hash minted with outdated argon2 parameters. Failures are logged.
func (s *service) maybeRehash(ctx context.Context, customer *models.Customer, password string) {
	if !security.NeedsRehash(customer.PasswordHash, s.passwordCfg) {
		return
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err == nil {
		err = s.repo.UpdatePasswordHash(ctx, customer.ID, hash)
	}
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(s.logg.WithCustomerID(ctx, customer.ID.String()), "error", err.Error()), "password rehash failed")
		}
		return
	}
	customer.PasswordHash = hash
}
