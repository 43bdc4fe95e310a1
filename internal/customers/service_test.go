package customers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

var (
	testJWT      = config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 30}
	testPassword = config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
)

type stubClaimer struct {
	sessionKey string
	customerID uuid.UUID
	claimed    bool
	err        error
}

func (s *stubClaimer) ClaimSessionCart(_ context.Context, sessionKey string, customerID uuid.UUID) (bool, error) {
	s.sessionKey = sessionKey
	s.customerID = customerID
	return s.claimed, s.err
}

func newTestService(t *testing.T, claimer cartClaimer) (Service, *gorm.DB) {
	t.Helper()
	return newClockedService(t, claimer, nil)
}

func newClockedService(t *testing.T, claimer cartClaimer, now func() time.Time) (Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	svc, err := NewService(ServiceParams{
		TxRunner:       client,
		Repository:     NewRepository(conn),
		Outbox:         outbox.NewService(outbox.NewRepository(conn), nil),
		Carts:          claimer,
		JWTConfig:      testJWT,
		PasswordConfig: testPassword,
		Now:            now,
	})
	require.NoError(t, err)
	return svc, conn
}

func register(t *testing.T, svc Service, email string) *CustomerDTO {
	t.Helper()
	dto, err := svc.Register(context.Background(), RegisterRequest{
		Email:     email,
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	return dto
}

func TestRegisterNormalizesEmailAndRejectsDuplicates(t *testing.T) {
	svc, conn := newTestService(t, nil)

	dto := register(t, svc, "  Ada@Example.COM ")
	assert.Equal(t, "ada@example.com", dto.Email)
	assert.Equal(t, enums.CustomerRoleCustomer, dto.Role)

	var stored models.Customer
	require.NoError(t, conn.First(&stored, "id = ?", dto.ID).Error)
	assert.NotEqual(t, "correct-horse", stored.PasswordHash)
	ok, err := security.VerifyPassword("correct-horse", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Register(context.Background(), RegisterRequest{
		Email: "ADA@example.com", Password: "another-pass", FirstName: "A", LastName: "L",
	})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	cases := []RegisterRequest{
		{Email: "", Password: "long-enough", FirstName: "A", LastName: "B"},
		{Email: "a@b.co", Password: "short", FirstName: "A", LastName: "B"},
		{Email: "a@b.co", Password: "long-enough", FirstName: " ", LastName: "B"},
	}
	for _, req := range cases {
		_, err := svc.Register(context.Background(), req)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err), "%+v", req)
	}
}

func TestLoginIssuesTokenAndClaimsCart(t *testing.T) {
	claimer := &stubClaimer{claimed: true}
	svc, conn := newTestService(t, claimer)
	dto := register(t, svc, "grace@example.com")

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email: "GRACE@example.com", Password: "correct-horse", SessionKey: "sess-1",
	})
	require.NoError(t, err)
	assert.True(t, resp.CartClaimed)
	assert.Equal(t, "sess-1", claimer.sessionKey)
	assert.Equal(t, dto.ID, claimer.customerID)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, dto.ID, claims.CustomerID)
	assert.Equal(t, enums.CustomerRoleCustomer, claims.Role)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), resp.ExpiresAt, time.Minute)

	var stored models.Customer
	require.NoError(t, conn.First(&stored, "id = ?", dto.ID).Error)
	require.NotNil(t, stored.LastLoginAt)
}

func TestLoginWithoutSessionSkipsClaim(t *testing.T) {
	claimer := &stubClaimer{}
	svc, _ := newTestService(t, claimer)
	register(t, svc, "linus@example.com")

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "linus@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.False(t, resp.CartClaimed)
	assert.Empty(t, claimer.sessionKey)
}

func TestLoginPropagatesClaimFailure(t *testing.T) {
	claimer := &stubClaimer{err: pkgerrors.Wrap(pkgerrors.CodeInternal, errors.New("db down"), "claim cart")}
	svc, _ := newTestService(t, claimer)
	register(t, svc, "ken@example.com")

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ken@example.com", Password: "correct-horse", SessionKey: "s"})
	assert.Equal(t, pkgerrors.CodeInternal, pkgerrors.CodeOf(err))
}

func TestLoginRejectsBadCredentialsGenerically(t *testing.T) {
	svc, conn := newTestService(t, nil)
	dto := register(t, svc, "barbara@example.com")
	inactive := register(t, svc, "dennis@example.com")
	require.NoError(t, conn.Model(&models.Customer{}).Where("id = ?", inactive.ID).UpdateColumn("is_active", false).Error)

	cases := []LoginRequest{
		{Email: dto.Email, Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "correct-horse"},
		{Email: inactive.Email, Password: "correct-horse"},
		{Email: "", Password: "correct-horse"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
		assert.Equal(t, invalidCredentialsMessage, pkgerrors.As(err).Message())
	}
}

func TestLoginRehashesOutdatedPasswords(t *testing.T) {
	svc, conn := newTestService(t, nil)
	customer := dbtest.MustCreateCustomer(t, conn)
	legacy, err := security.HashPassword("correct-horse", config.PasswordConfig{ArgonMemoryKB: 32, ArgonTime: 2, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Customer{}).Where("id = ?", customer.ID).UpdateColumn("password_hash", legacy).Error)

	_, err = svc.Login(context.Background(), LoginRequest{Email: customer.Email, Password: "correct-horse"})
	require.NoError(t, err)

	var stored models.Customer
	require.NoError(t, conn.First(&stored, "id = ?", customer.ID).Error)
	assert.NotEqual(t, legacy, stored.PasswordHash)
	assert.False(t, security.NeedsRehash(stored.PasswordHash, testPassword))
}

func TestGetCustomer(t *testing.T) {
	svc, _ := newTestService(t, nil)
	dto := register(t, svc, "margaret@example.com")

	got, err := svc.Get(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.Email, got.Email)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
