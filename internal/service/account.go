package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/recircle/account-service/internal/auth"
	"github.com/recircle/account-service/internal/domain"
	"github.com/recircle/account-service/internal/repository"
	apperrors "github.com/recircle/account-service/pkg/errors"
)

// resetTokenLifetime is how long a password-reset token stays valid.
const resetTokenLifetime = 10 * time.Minute

// EventPublisher publishes account lifecycle events to the message bus.
// Publishing is best-effort; the service logs failures and carries on.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, account *domain.Account) error
	PublishAccountUpdated(ctx context.Context, account *domain.Account) error
	PublishAccountDeactivated(ctx context.Context, account *domain.Account) error
	PublishAccountRoleChanged(ctx context.Context, account *domain.Account, oldRole string) error
	PublishAccountResetToken(ctx context.Context, account *domain.Account, rawToken string, expiresAt time.Time) error
}

// Session is an issued session token and its expiry.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// AccountService implements the business logic for account and auth operations.
type AccountService struct {
	repo     repository.AccountRepository
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenService
	producer EventPublisher
	logger   *slog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(
	repo repository.AccountRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenService,
	producer EventPublisher,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		producer: producer,
		logger:   logger,
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new account.
// The role is always `user` at creation and the display name is derived
// from the first and last name; neither is caller-supplied.
type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	Phone           string
	Company         string
	TermsAccepted   bool
}

// LoginInput holds the parameters for login. Login matches either the
// email or the handle, case-insensitively.
type LoginInput struct {
	Login    string
	Password string
}

// UpdateProfileInput holds the parameters for updating an account profile.
// Nil fields are left unchanged.
type UpdateProfileInput struct {
	FirstName   *string
	LastName    *string
	DisplayName *string
	Phone       *string
	Company     *string
	Address     *domain.Address
}

// --- Auth Operations ---

// Register creates a new account, hashes the password, and returns the
// redacted account with a fresh session token.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*domain.Account, *Session, error) {
	fields := map[string]string{}
	if input.Email == "" {
		fields["email"] = "email is required"
	}
	if input.FirstName == "" {
		fields["first_name"] = "first name is required"
	}
	if input.LastName == "" {
		fields["last_name"] = "last name is required"
	}
	if input.Phone == "" {
		fields["phone"] = "phone is required"
	}
	if input.Password == "" {
		fields["password"] = "password is required"
	}
	if len(fields) > 0 {
		return nil, nil, apperrors.Validation(fields)
	}

	if !input.TermsAccepted {
		return nil, nil, apperrors.TermsNotAccepted()
	}
	if input.Password != input.ConfirmPassword {
		return nil, nil, apperrors.PasswordMismatch()
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	email := domain.NormalizeEmail(input.Email)
	handle := domain.DeriveHandle(email)
	if handle == "" {
		return nil, nil, apperrors.Validation(map[string]string{
			"email": "email must have a non-empty local part",
		})
	}
	if len(handle) > domain.MaxHandleLen {
		return nil, nil, apperrors.Validation(map[string]string{
			"email": fmt.Sprintf("email local part must be at most %d characters", domain.MaxHandleLen),
		})
	}

	// Advisory pre-check. The unique indexes on lower(email) and
	// lower(handle) remain the authoritative guard against races.
	exists, err := s.repo.ExistsByEmailOrHandle(ctx, email, handle)
	if err != nil {
		return nil, nil, fmt.Errorf("check existing account: %w", err)
	}
	if exists {
		return nil, nil, apperrors.DuplicateAccount()
	}

	digest, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:             uuid.New().String(),
		Handle:         handle,
		Email:          email,
		PasswordDigest: digest,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		DisplayName:    deriveDisplayName(input.FirstName, input.LastName),
		Phone:          input.Phone,
		Company:        input.Company,
		Role:           domain.RoleUser,
		IsActive:       true,
		TermsAccepted:  true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateAccount) {
			return nil, nil, apperrors.DuplicateAccount()
		}
		return nil, nil, fmt.Errorf("create account: %w", err)
	}

	session, err := s.issueSession(account.ID)
	if err != nil {
		return nil, nil, err
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishAccountRegistered(ctx, account); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.registered event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account registered",
		slog.String("account_id", account.ID),
		slog.String("handle", account.Handle),
	)

	account.PasswordDigest = ""
	return account, session, nil
}

// Login authenticates an account by email or handle and password.
// Unknown login and wrong password produce the same error; a deactivated
// account is reported distinctly.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (*domain.Account, *Session, error) {
	fields := map[string]string{}
	if input.Login == "" {
		fields["login"] = "email or handle is required"
	}
	if input.Password == "" {
		fields["password"] = "password is required"
	}
	if len(fields) > 0 {
		return nil, nil, apperrors.Validation(fields)
	}

	account, err := s.repo.GetByLogin(ctx, domain.NormalizeLogin(input.Login))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.InvalidCredentials()
		}
		return nil, nil, fmt.Errorf("get account for login: %w", err)
	}

	if !account.IsActive {
		return nil, nil, apperrors.AccountDeactivated()
	}

	if !s.hasher.Verify(ctx, input.Password, account.PasswordDigest) {
		return nil, nil, apperrors.InvalidCredentials()
	}

	session, err := s.issueSession(account.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "account logged in",
		slog.String("account_id", account.ID),
	)

	account.PasswordDigest = ""
	return account, session, nil
}

// ForgotPassword issues a password-reset token for the account matching the
// given email. It never reveals whether the email exists.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.Validation(map[string]string{"email": "email is required"})
	}

	account, err := s.repo.GetByLogin(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("get account for password reset: %w", err)
	}

	rawToken, err := newResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	// Only the digest is stored; the raw token travels to the caller.
	expiry := time.Now().UTC().Add(resetTokenLifetime)
	if err := s.repo.SetResetToken(ctx, account.ID, hashResetToken(rawToken), expiry); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.producer.PublishAccountResetToken(ctx, account, rawToken, expiry); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.password_reset event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("account_id", account.ID),
	)

	return nil
}

// ResetPassword replaces the password of the account holding the given
// reset token, then clears the token.
func (s *AccountService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if rawToken == "" {
		return apperrors.Validation(map[string]string{"token": "reset token is required"})
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	account, err := s.repo.GetByResetToken(ctx, hashResetToken(rawToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Unauthorized("invalid or expired reset token")
		}
		return fmt.Errorf("get account by reset token: %w", err)
	}

	if account.ResetTokenExpiry == nil || time.Now().UTC().After(*account.ResetTokenExpiry) {
		return apperrors.Unauthorized("invalid or expired reset token")
	}

	digest, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, account.ID, digest); err != nil {
		return fmt.Errorf("update account password: %w", err)
	}

	if err := s.repo.ClearResetToken(ctx, account.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear reset token",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("account_id", account.ID),
	)

	return nil
}

// ChangePassword allows an authenticated account to change their password
// after re-verifying the current one.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return apperrors.Validation(map[string]string{"current_password": "current password is required"})
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	account, err := s.repo.GetByIDWithDigest(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get account for password change: %w", err)
	}

	if !s.hasher.Verify(ctx, currentPassword, account.PasswordDigest) {
		return apperrors.InvalidCredentials()
	}

	digest, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, account.ID, digest); err != nil {
		return fmt.Errorf("update account password: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("account_id", account.ID),
	)

	return nil
}

// --- Account Operations ---

// GetAccount retrieves an account by its ID, redacted.
func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("account", accountID)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// UpdateProfile updates an account's profile fields. Identity fields
// (email, handle, role) are never touched here.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, input UpdateProfileInput) (*domain.Account, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		if *input.FirstName == "" {
			return nil, apperrors.Validation(map[string]string{"first_name": "first name must not be empty"})
		}
		account.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		if *input.LastName == "" {
			return nil, apperrors.Validation(map[string]string{"last_name": "last name must not be empty"})
		}
		account.LastName = *input.LastName
	}
	if input.DisplayName != nil {
		account.DisplayName = *input.DisplayName
	}
	if input.Phone != nil {
		account.Phone = *input.Phone
	}
	if input.Company != nil {
		account.Company = *input.Company
	}
	if input.Address != nil {
		account.Address = *input.Address
	}

	if err := s.repo.UpdateProfile(ctx, account); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}

	// Publish account updated event (non-blocking on failure).
	if err := s.producer.PublishAccountUpdated(ctx, account); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.updated event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account profile updated",
		slog.String("account_id", account.ID),
	)

	return account, nil
}

// Deactivate marks an account inactive. Deactivation is one-way through
// this service; already-issued session tokens stop working at the gate.
func (s *AccountService) Deactivate(ctx context.Context, accountID string) error {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	if !account.IsActive {
		return nil
	}

	if err := s.repo.SetActive(ctx, account.ID, false); err != nil {
		return fmt.Errorf("deactivate account: %w", err)
	}
	account.IsActive = false

	if err := s.producer.PublishAccountDeactivated(ctx, account); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.deactivated event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account deactivated",
		slog.String("account_id", account.ID),
	)

	return nil
}

// SetRole changes an account's role. Admin only; the handler enforces that.
func (s *AccountService) SetRole(ctx context.Context, accountID, role string) (*domain.Account, error) {
	if !domain.IsValidRole(role) {
		return nil, apperrors.Validation(map[string]string{
			"role": fmt.Sprintf("role must be one of %v", domain.ValidRoles()),
		})
	}

	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if account.Role == role {
		return account, nil
	}

	oldRole := account.Role
	if err := s.repo.SetRole(ctx, account.ID, role); err != nil {
		return nil, fmt.Errorf("set account role: %w", err)
	}
	account.Role = role

	if err := s.producer.PublishAccountRoleChanged(ctx, account, oldRole); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.role_changed event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account role changed",
		slog.String("account_id", account.ID),
		slog.String("old_role", oldRole),
		slog.String("new_role", role),
	)

	return account, nil
}

// ListAccounts returns all accounts, redacted, newest first.
func (s *AccountService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// --- Helpers ---

func (s *AccountService) issueSession(accountID string) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(accountID)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}

// deriveDisplayName builds the display name stored at creation time from
// the trimmed first and last name.
func deriveDisplayName(firstName, lastName string) string {
	return strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName)
}

// validatePassword enforces the minimum password length.
func validatePassword(password string) error {
	if len(password) < domain.MinPasswordLen {
		return apperrors.Validation(map[string]string{
			"password": fmt.Sprintf("password must be at least %d characters", domain.MinPasswordLen),
		})
	}
	return nil
}

// newResetToken returns a random hex token for the password-reset flow.
func newResetToken() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashResetToken returns the hex-encoded SHA-256 digest stored in place of
// the raw reset token.
func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
