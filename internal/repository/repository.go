package repository

import (
	"context"
	"time"

	"github.com/recircle/account-service/internal/domain"
)

// AccountRepository defines the interface for account persistence operations.
//
// Reads exclude the password digest and reset-token fields unless the method
// says otherwise. Uniqueness of email and handle (case-insensitive) is
// enforced by the store itself; a violated constraint surfaces as
// apperrors.ErrDuplicateAccount even when a pre-check raced.
type AccountRepository interface {
	// Create inserts a new account. A concurrent insert with the same
	// email or handle yields a duplicate error, never two rows.
	Create(ctx context.Context, account *domain.Account) error

	// GetByID retrieves an account by its unique identifier, redacted.
	GetByID(ctx context.Context, id string) (*domain.Account, error)

	// GetByIDWithDigest retrieves an account by ID including the password
	// digest, for password re-verification.
	GetByIDWithDigest(ctx context.Context, id string) (*domain.Account, error)

	// GetByLogin retrieves an account by case-insensitive email or handle,
	// including the password digest, for login verification.
	GetByLogin(ctx context.Context, login string) (*domain.Account, error)

	// ExistsByEmailOrHandle reports whether any account matches the given
	// email or handle case-insensitively.
	ExistsByEmailOrHandle(ctx context.Context, email, handle string) (bool, error)

	// UpdateProfile persists profile fields only (names, phone, company,
	// address). It never touches id, email, handle, role, or created_at.
	UpdateProfile(ctx context.Context, account *domain.Account) error

	// UpdatePassword replaces the stored password digest.
	UpdatePassword(ctx context.Context, id, digest string) error

	// SetActive flips the is_active flag.
	SetActive(ctx context.Context, id string, active bool) error

	// SetRole replaces the account role.
	SetRole(ctx context.Context, id, role string) error

	// SetResetToken stores a password-reset token digest and its expiry.
	SetResetToken(ctx context.Context, id, token string, expiry time.Time) error

	// GetByResetToken retrieves an account by its stored reset-token digest,
	// including the reset-token fields so the caller can check the expiry.
	GetByResetToken(ctx context.Context, token string) (*domain.Account, error)

	// ClearResetToken removes any stored reset token from the account.
	ClearResetToken(ctx context.Context, id string) error

	// List returns all accounts, redacted, newest first.
	List(ctx context.Context) ([]domain.Account, error)
}
