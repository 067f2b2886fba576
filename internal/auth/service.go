// Package auth implements credential checks, JWT issuance and refresh
// rotation, and the password reset flow. Transport concerns (header
// parsing, gin middleware) live with the HTTP server.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/procurehq/procure-server/internal/config"
	"github.com/procurehq/procure-server/internal/models"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// deactivated accounts alike so responses do not leak which it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid marks refresh or reset tokens that are expired,
	// malformed or already consumed.
	ErrTokenInvalid = errors.New("token is invalid or expired")
	// ErrRateLimited is returned when reset requests exceed the window cap.
	ErrRateLimited = errors.New("too many requests")
)

// UserAccounts is the slice of the user repository the auth service needs.
type UserAccounts interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// Service authenticates users and manages their token lifecycle
type Service struct {
	users  UserAccounts
	store  TokenStore
	cfg    config.JWTConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewService(users UserAccounts, store TokenStore, cfg config.JWTConfig, logger *zap.Logger) *Service {
	return &Service{
		users:  users,
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Login verifies the email/password pair and issues a token pair
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !user.Active {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID),
		zap.String("role", user.Role))
	return pair, user, nil
}

// Refresh rotates a refresh token: the presented token is invalidated
// and a new pair is issued. A replayed token fails the store lookup.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	jti, userID, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	storedUserID, err := s.store.Get(ctx, refreshKeyPrefix+jti)
	if err != nil {
		return nil, fmt.Errorf("failed to check refresh token: %w", err)
	}
	if storedUserID == "" || storedUserID != userID {
		return nil, ErrTokenInvalid
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !user.Active {
		return nil, ErrTokenInvalid
	}

	if err := s.store.Del(ctx, refreshKeyPrefix+jti); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return s.issueTokens(ctx, user)
}

// Logout invalidates the presented refresh token. Access tokens are
// short-lived and simply age out.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	jti, _, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		// Nothing to revoke for a token we would never accept.
		return nil
	}
	if err := s.store.Del(ctx, refreshKeyPrefix+jti); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// HashPassword produces a bcrypt hash for storage
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
