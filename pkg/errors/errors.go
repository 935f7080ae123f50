package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal error")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Status  int               `json:"-"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation creates a 400 error naming the missing or malformed fields.
func Validation(fields map[string]string) *AppError {
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("invalid request: %s", strings.Join(names, ", ")),
		Fields:  fields,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// InvalidInput creates a 400 error with a free-form message.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// TermsNotAccepted creates a 400 error for a registration without accepted terms.
func TermsNotAccepted() *AppError {
	return &AppError{
		Code:    "TERMS_NOT_ACCEPTED",
		Message: "you must accept the terms and conditions",
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// PasswordMismatch creates a 400 error for password/confirmation disagreement.
func PasswordMismatch() *AppError {
	return &AppError{
		Code:    "PASSWORD_MISMATCH",
		Message: "passwords do not match",
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// DuplicateAccount creates a 409 error. The message deliberately does not
// reveal whether the email or the handle collided.
func DuplicateAccount() *AppError {
	return &AppError{
		Code:    "DUPLICATE_ACCOUNT",
		Message: "an account with this email or handle already exists",
		Status:  http.StatusConflict,
		Err:     ErrDuplicateAccount,
	}
}

// InvalidCredentials creates a 401 error. Unknown login and wrong password
// share this error so callers cannot enumerate accounts.
func InvalidCredentials() *AppError {
	return &AppError{
		Code:    "INVALID_CREDENTIALS",
		Message: "invalid credentials",
		Status:  http.StatusUnauthorized,
		Err:     ErrInvalidCredentials,
	}
}

// AccountDeactivated creates a 401 error for a suspended account.
func AccountDeactivated() *AppError {
	return &AppError{
		Code:    "ACCOUNT_DEACTIVATED",
		Message: "account is deactivated",
		Status:  http.StatusUnauthorized,
		Err:     ErrAccountDeactivated,
	}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Internal creates a 500 error. The wrapped cause is kept for logging but
// never serialized to the caller.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateAccount):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAccountDeactivated),
		errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
