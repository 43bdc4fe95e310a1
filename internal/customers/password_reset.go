package customers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

const (
	// PasswordResetTTL is how long a reset token stays usable after it is issued.
	PasswordResetTTL = time.Hour

	resetTokenBytes     = 32
	invalidResetMessage = "reset token is invalid or expired"
)

// RequestPasswordReset issues a reset token for the account behind email and
// queues a password_reset_requested event for delivery. Unknown and inactive
// accounts succeed silently so the response never reveals which emails are registered.
func (s *service) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	customer, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
	}
	if !customer.IsActive {
		return nil
	}

	raw, err := newResetToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	issuedAt := s.now().UTC()
	token := &models.PasswordResetToken{
		CustomerID: customer.ID,
		TokenHash:  hashResetToken(raw),
		CreatedAt:  issuedAt,
		ExpiresAt:  issuedAt.Add(PasswordResetTTL),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteResetTokens(ctx, customer.ID); err != nil {
			return err
		}
		if err := repo.CreateResetToken(ctx, token); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPasswordResetRequested,
			AggregateType: enums.AggregateCustomer,
			AggregateID:   customer.ID,
			Actor:         &outbox.ActorRef{CustomerID: customer.ID, Role: string(customer.Role)},
			Data: outbox.PasswordResetRequestedEvent{
				CustomerID: customer.ID,
				Email:      customer.Email,
				FirstName:  customer.FirstName,
				Token:      raw,
				ExpiresAt:  token.ExpiresAt,
			},
			OccurredAt: issuedAt,
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue reset token")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithCustomerID(ctx, customer.ID.String()), "password reset requested")
	}
	return nil
}

// ConfirmPasswordReset replaces the password of the token's owner and burns
// every outstanding token of that customer.
func (s *service) ConfirmPasswordReset(ctx context.Context, req ConfirmPasswordResetRequest) error {
	if req.NewPassword != req.ConfirmPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "passwords do not match").
			WithDetails(map[string]any{"field": "confirm_password"})
	}
	if len(req.NewPassword) < security.MinPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "password is too short").
			WithDetails(map[string]any{"min_length": security.MinPasswordLength})
	}
	raw := strings.TrimSpace(req.Token)
	if raw == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, invalidResetMessage)
	}

	token, err := s.repo.FindResetToken(ctx, hashResetToken(raw))
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeValidation, invalidResetMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reset token")
	}
	if !s.now().Before(token.ExpiresAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, invalidResetMessage)
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdatePasswordHash(ctx, token.CustomerID, hash); err != nil {
			return err
		}
		return repo.DeleteResetTokens(ctx, token.CustomerID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reset password")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithCustomerID(ctx, token.CustomerID.String()), "password reset completed")
	}
	return nil
}

func newResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
