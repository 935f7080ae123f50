package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/recircle/account-service/internal/domain"
	"github.com/recircle/account-service/internal/service"
	"github.com/recircle/account-service/pkg/validator"
)

// AccountHandler handles HTTP requests for profile and admin endpoints.
type AccountHandler struct {
	service *service.AccountService
	logger  *slog.Logger
}

// NewAccountHandler creates a new account HTTP handler.
func NewAccountHandler(svc *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// AddressRequest is the JSON shape for the optional structured address.
type AddressRequest struct {
	Street  string `json:"street" validate:"omitempty,max=200"`
	City    string `json:"city" validate:"omitempty,max=100"`
	State   string `json:"state" validate:"omitempty,max=100"`
	ZipCode string `json:"zip_code" validate:"omitempty,max=20"`
	Country string `json:"country" validate:"omitempty,max=100"`
}

// UpdateProfileRequest is the JSON request body for updating a profile.
// Absent fields are left unchanged.
type UpdateProfileRequest struct {
	FirstName   *string         `json:"first_name" validate:"omitempty,min=1,max=50"`
	LastName    *string         `json:"last_name" validate:"omitempty,min=1,max=50"`
	DisplayName *string         `json:"display_name" validate:"omitempty,max=100"`
	Phone       *string         `json:"phone" validate:"omitempty,max=20"`
	Company     *string         `json:"company" validate:"omitempty,max=100"`
	Address     *AddressRequest `json:"address"`
}

// ChangePasswordRequest is the JSON request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// SetRoleRequest is the JSON request body for an admin role change.
type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin collector processor"`
}

// --- Self-service Handlers ---

// UpdateProfile handles PUT /api/v1/users/me
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())
	if account == nil {
		writeGateError(w, "UNAUTHORIZED", "account not authenticated")
		return
	}

	var req UpdateProfileRequest
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

	input := service.UpdateProfileInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		Company:     req.Company,
	}
	if req.Address != nil {
		input.Address = &domain.Address{
			Street:  req.Address.Street,
			City:    req.Address.City,
			State:   req.Address.State,
			ZipCode: req.Address.ZipCode,
			Country: req.Address.Country,
		}
	}

	updated, err := h.service.UpdateProfile(r.Context(), account.ID, input)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: updated})
}

// ChangePassword handles PUT /api/v1/users/me/password
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())
	if account == nil {
		writeGateError(w, "UNAUTHORIZED", "account not authenticated")
		return
	}

	var req ChangePasswordRequest
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

	if err := h.service.ChangePassword(r.Context(), account.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: map[string]string{"message": "password changed successfully"},
	})
}

// Deactivate handles PUT /api/v1/users/me/deactivate
func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())
	if account == nil {
		writeGateError(w, "UNAUTHORIZED", "account not authenticated")
		return
	}

	if err := h.service.Deactivate(r.Context(), account.ID); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: map[string]string{"id": account.ID, "status": "deactivated"},
	})
}

// --- Admin Handlers ---

// List handles GET /api/v1/admin/users
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: accounts})
}

// Get handles GET /api/v1/admin/users/{id}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "account id is required"},
		})
		return
	}

	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: account})
}

// SetRole handles PUT /api/v1/admin/users/{id}/role
func (h *AccountHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "account id is required"},
		})
		return
	}

	var req SetRoleRequest
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

	account, err := h.service.SetRole(r.Context(), accountID, req.Role)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: account})
}
