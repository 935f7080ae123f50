package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/recircle/account-service/internal/domain"
	apperrors "github.com/recircle/account-service/pkg/errors"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock's pool
// satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements repository.AccountRepository using PostgreSQL.
// Unique indexes on lower(email) and lower(handle) are the authoritative
// duplicate check; SQLSTATE 23505 maps to ErrDuplicateAccount.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new PostgreSQL-backed account repository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// redactedColumns lists the columns scanned for ordinary reads. The password
// digest and reset-token fields are deliberately absent.
const redactedColumns = `id, handle, email, first_name, last_name, display_name, phone, company,
		addr_street, addr_city, addr_state, addr_zip_code, addr_country,
		role, is_active, terms_accepted, created_at, updated_at`

// Create inserts a new account into the database.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO accounts (id, handle, email, password_digest, first_name, last_name, display_name, phone, company,
			addr_street, addr_city, addr_state, addr_zip_code, addr_country,
			role, is_active, terms_accepted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.db.Exec(ctx, query,
		a.ID,
		a.Handle,
		a.Email,
		a.PasswordDigest,
		a.FirstName,
		a.LastName,
		a.DisplayName,
		a.Phone,
		a.Company,
		a.Address.Street,
		a.Address.City,
		a.Address.State,
		a.Address.ZipCode,
		a.Address.Country,
		a.Role,
		a.IsActive,
		a.TermsAccepted,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.DuplicateAccount()
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID, without credential fields.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		SELECT ` + redactedColumns + `
		FROM accounts
		WHERE id = $1`

	return r.scanRedacted(ctx, query, id)
}

// GetByIDWithDigest retrieves an account by its ID including the password digest.
func (r *AccountRepository) GetByIDWithDigest(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		SELECT id, handle, email, password_digest, first_name, last_name, display_name, phone, company,
			addr_street, addr_city, addr_state, addr_zip_code, addr_country,
			role, is_active, terms_accepted, created_at, updated_at
		FROM accounts
		WHERE id = $1`

	return r.scanFull(ctx, query, id)
}

// GetByLogin retrieves an account by case-insensitive email or handle,
// including the password digest.
func (r *AccountRepository) GetByLogin(ctx context.Context, login string) (*domain.Account, error) {
	query := `
		SELECT id, handle, email, password_digest, first_name, last_name, display_name, phone, company,
			addr_street, addr_city, addr_state, addr_zip_code, addr_country,
			role, is_active, terms_accepted, created_at, updated_at
		FROM accounts
		WHERE lower(email) = $1 OR lower(handle) = $1`

	return r.scanFull(ctx, query, strings.ToLower(strings.TrimSpace(login)))
}

// ExistsByEmailOrHandle reports whether any account matches the given email
// or handle, case-insensitively.
func (r *AccountRepository) ExistsByEmailOrHandle(ctx context.Context, email, handle string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM accounts
			WHERE lower(email) = $1 OR lower(handle) = $2
		)`

	var exists bool
	err := r.db.QueryRow(ctx, query, strings.ToLower(email), strings.ToLower(handle)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check account existence: %w", err)
	}
	return exists, nil
}

// UpdateProfile persists profile fields only.
func (r *AccountRepository) UpdateProfile(ctx context.Context, a *domain.Account) error {
	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE accounts
		SET first_name = $1, last_name = $2, phone = $3, company = $4,
		    addr_street = $5, addr_city = $6, addr_state = $7, addr_zip_code = $8, addr_country = $9,
		    updated_at = $10
		WHERE id = $11`

	ct, err := r.db.Exec(ctx, query,
		a.FirstName,
		a.LastName,
		a.Phone,
		a.Company,
		a.Address.Street,
		a.Address.City,
		a.Address.State,
		a.Address.ZipCode,
		a.Address.Country,
		a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("update account profile: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("account", a.ID)
	}

	return nil
}

// UpdatePassword replaces the stored password digest.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id, digest string) error {
	query := `UPDATE accounts SET password_digest = $1, updated_at = $2 WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, digest, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update account password: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("account", id)
	}

	return nil
}

// SetActive flips the is_active flag.
func (r *AccountRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE accounts SET is_active = $1, updated_at = $2 WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set account active: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("account", id)
	}

	return nil
}

// SetRole replaces the account role.
func (r *AccountRepository) SetRole(ctx context.Context, id, role string) error {
	query := `UPDATE accounts SET role = $1, updated_at = $2 WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, role, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set account role: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("account", id)
	}

	return nil
}

// SetResetToken stores a password-reset token and its expiry.
func (r *AccountRepository) SetResetToken(ctx context.Context, id, token string, expiry time.Time) error {
	query := `UPDATE accounts SET reset_token = $1, reset_token_expiry = $2, updated_at = $3 WHERE id = $4`

	ct, err := r.db.Exec(ctx, query, token, expiry, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("account", id)
	}

	return nil
}

// GetByResetToken retrieves an account by its stored reset-token digest.
// The reset-token columns are included so the service can check the expiry.
func (r *AccountRepository) GetByResetToken(ctx context.Context, token string) (*domain.Account, error) {
	query := `
		SELECT ` + redactedColumns + `, reset_token, reset_token_expiry
		FROM accounts
		WHERE reset_token = $1`

	var a domain.Account
	err := r.db.QueryRow(ctx, query, token).Scan(
		&a.ID, &a.Handle, &a.Email, &a.FirstName, &a.LastName, &a.DisplayName, &a.Phone, &a.Company,
		&a.Address.Street, &a.Address.City, &a.Address.State, &a.Address.ZipCode, &a.Address.Country,
		&a.Role, &a.IsActive, &a.TermsAccepted, &a.CreatedAt, &a.UpdatedAt,
		&a.ResetToken, &a.ResetTokenExpiry,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan account by reset token: %w", err)
	}

	return &a, nil
}

// ClearResetToken removes any stored reset token from the account.
func (r *AccountRepository) ClearResetToken(ctx context.Context, id string) error {
	query := `UPDATE accounts SET reset_token = '', reset_token_expiry = NULL, updated_at = $1 WHERE id = $2`

	ct, err := r.db.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("account", id)
	}

	return nil
}

// List returns all accounts, redacted, newest first.
func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	query := `
		SELECT ` + redactedColumns + `
		FROM accounts
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(
			&a.ID, &a.Handle, &a.Email, &a.FirstName, &a.LastName, &a.DisplayName, &a.Phone, &a.Company,
			&a.Address.Street, &a.Address.City, &a.Address.State, &a.Address.ZipCode, &a.Address.Country,
			&a.Role, &a.IsActive, &a.TermsAccepted, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account rows: %w", err)
	}

	return accounts, nil
}

// scanRedacted executes a query expected to return a single account row
// without credential columns.
func (r *AccountRepository) scanRedacted(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	var a domain.Account

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&a.ID, &a.Handle, &a.Email, &a.FirstName, &a.LastName, &a.DisplayName, &a.Phone, &a.Company,
		&a.Address.Street, &a.Address.City, &a.Address.State, &a.Address.ZipCode, &a.Address.Country,
		&a.Role, &a.IsActive, &a.TermsAccepted, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return &a, nil
}

// scanFull executes a query expected to return a single account row
// including the password digest.
func (r *AccountRepository) scanFull(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	var a domain.Account

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&a.ID, &a.Handle, &a.Email, &a.PasswordDigest, &a.FirstName, &a.LastName, &a.DisplayName, &a.Phone, &a.Company,
		&a.Address.Street, &a.Address.City, &a.Address.State, &a.Address.ZipCode, &a.Address.Country,
		&a.Role, &a.IsActive, &a.TermsAccepted, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return &a, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
