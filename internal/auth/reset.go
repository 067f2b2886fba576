package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/procurehq/procure-server/internal/errs"
	"github.com/procurehq/procure-server/pkg/utils"
)

const (
	// ResetTokenTTL is how long an issued reset token stays usable
	ResetTokenTTL = time.Hour

	resetRateWindow   = time.Hour
	resetRateMax      = 3
	minPasswordLength = 8
)

// RequestReset issues a single-use reset token for the account behind
// email. Unknown addresses report success anyway so the endpoint cannot
// be used to probe which emails exist.
func (s *Service) RequestReset(ctx context.Context, email string) (string, error) {
	if err := utils.ValidateEmail(email); err != nil {
		return "", errs.InvalidInput("invalid email address")
	}

	count, err := s.store.Incr(ctx, resetRatePrefix+email, resetRateWindow)
	if err != nil {
		return "", fmt.Errorf("failed to check reset rate: %w", err)
	}
	if count > resetRateMax {
		return "", ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !user.Active {
		return "", nil
	}

	token := uuid.New().String()
	if err := s.store.Set(ctx, resetKeyPrefix+token, user.ID, ResetTokenTTL); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	s.logger.Info("Password reset requested",
		zap.String("user_id", user.ID))
	return token, nil
}

// ResetPassword consumes a reset token and sets the new password
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return errs.InvalidInput("password must be at least %d characters", minPasswordLength)
	}

	userID, err := s.store.Get(ctx, resetKeyPrefix+token)
	if err != nil {
		return fmt.Errorf("failed to check reset token: %w", err)
	}
	if userID == "" {
		return ErrTokenInvalid
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.store.Del(ctx, resetKeyPrefix+token); err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	s.logger.Info("Password reset completed",
		zap.String("user_id", userID))
	return nil
}

// ChangePassword updates the password of a logged-in user after
// verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return errs.InvalidInput("password must be at least %d characters", minPasswordLength)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !user.Active {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("Password changed",
		zap.String("user_id", user.ID))
	return nil
}
