package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/recircle/account-service/internal/domain"
	"github.com/recircle/account-service/internal/service"
	"github.com/recircle/account-service/pkg/validator"
)

// AuthHandler handles HTTP requests for registration, login, and session
// endpoints.
type AuthHandler struct {
	service *service.AccountService
	logger  *slog.Logger

	// secureCookies marks the session cookie Secure outside development.
	secureCookies bool
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AccountService, logger *slog.Logger, secureCookies bool) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger, secureCookies: secureCookies}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for account registration.
// There is no role or display_name field: every registrant starts as a
// plain user and the display name is derived server-side. Unknown JSON
// keys are silently dropped by the decoder.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	FirstName       string `json:"first_name" validate:"required,min=1,max=50"`
	LastName        string `json:"last_name" validate:"required,min=1,max=50"`
	Phone           string `json:"phone" validate:"required,max=20"`
	Company         string `json:"company" validate:"omitempty,max=100"`
	TermsAccepted   bool   `json:"terms_accepted"`
}

// LoginRequest is the JSON request body for login. Login matches either
// the email or the handle.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest is the JSON request body for forgot password.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the JSON request body for password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// --- Response types ---

// AuthResponse wraps account data with the session token. The token is
// also set as an HttpOnly cookie for browser clients.
type AuthResponse struct {
	Account   *domain.Account `json:"account"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// --- Handlers ---

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	input := service.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Company:         req.Company,
		TermsAccepted:   req.TermsAccepted,
	}

	account, session, err := h.service.Register(r.Context(), input)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	h.setSessionCookie(w, session)
	writeJSON(w, http.StatusCreated, response{
		Data: AuthResponse{
			Account:   account,
			Token:     session.Token,
			ExpiresAt: session.ExpiresAt,
		},
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	account, session, err := h.service.Login(r.Context(), service.LoginInput{
		Login:    req.Login,
		Password: req.Password,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	h.setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, response{
		Data: AuthResponse{
			Account:   account,
			Token:     session.Token,
			ExpiresAt: session.ExpiresAt,
		},
	})
}

// Logout handles GET /api/v1/auth/logout
//
// The session token is self-contained, so logout is advisory: it clears the
// cookie and the client discards its copy, but an intercepted token stays
// valid until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, response{
		Data: map[string]string{"message": "logged out"},
	})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "account not authenticated"},
		})
		return
	}

	writeJSON(w, http.StatusOK, response{Data: account})
}

// ForgotPassword handles POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: map[string]string{"message": "if the email exists, a password reset link has been sent"},
	})
}

// ResetPassword handles POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: map[string]string{"message": "password has been reset successfully"},
	})
}

// setSessionCookie attaches the session token as an HttpOnly cookie.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, session *service.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
