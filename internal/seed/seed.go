// Package seed provisions the accounts a fresh deployment starts with.
// Seeding is skipped as soon as any user exists, so running it on every
// startup is safe.
package seed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/auth"
	"github.com/procurehq/procure-server/internal/models"
)

// DefaultPassword is the initial password on every seeded account
const DefaultPassword = "changeme123"

// UserStore is the slice of the user repository seeding needs
type UserStore interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, tx *sql.Tx, user *models.User) error
}

// TxRunner runs a function inside a database transaction
type TxRunner interface {
	WithTx(ctx context.Context, fn func(*sql.Tx) error) error
}

func defaultAccounts() []*models.User {
	return []*models.User{
		{Email: "admin@procurement.local", Name: "System Administrator", Role: models.RoleAdmin},
		{Email: "hop@procurement.local", Name: "Head of Procurement", Role: models.RoleHoP},
		{Email: "manager@procurement.local", Name: "Procurement Manager", Role: models.RoleProcurementManager},
		{Email: "officer@procurement.local", Name: "Procurement Officer", Role: models.RoleProcurementOfficer},
		{Email: "staff@procurement.local", Name: "Staff Member", Role: models.RoleStaff},
	}
}

// Users creates one default account per role when the user table is
// empty. All accounts share DefaultPassword and are expected to change
// it through the password API.
func Users(ctx context.Context, runner TxRunner, users UserStore, logger *zap.Logger) error {
	count, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		logger.Debug("Users already present, skipping seed",
			zap.Int("count", count))
		return nil
	}

	hash, err := auth.HashPassword(DefaultPassword)
	if err != nil {
		return err
	}

	accounts := defaultAccounts()
	err = runner.WithTx(ctx, func(tx *sql.Tx) error {
		for _, u := range accounts {
			u.ID = uuid.New().String()
			u.PasswordHash = hash
			u.Active = true
			if err := users.Create(ctx, tx, u); err != nil {
				return fmt.Errorf("failed to seed %s: %w", u.Email, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, u := range accounts {
		logger.Info("Seeded account",
			zap.String("email", u.Email),
			zap.String("role", u.Role))
	}
	logger.Warn("Default accounts created with the default password; change them before exposing the service")
	return nil
}
