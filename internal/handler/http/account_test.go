package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/recircle/account-service/internal/domain"
)

func bearerFor(t *testing.T, accountID string) func(*http.Request) {
	t.Helper()
	token, _, err := testTokens().Issue(accountID)
	require.NoError(t, err)
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// --- Self-service ---

func TestUpdateProfileEndpoint_Success(t *testing.T) {
	repo := new(mockAccountRepo)
	acc := storedAccount(t, "secret6")
	repo.On("GetByID", mock.Anything, "acc-1").Return(acc, nil)
	repo.On("UpdateProfile", mock.Anything, mock.AnythingOfType("*domain.Account")).Return(nil)
	router := newTestRouter(repo)

	rr := doJSON(t, router, http.MethodPut, "/api/v1/users/me", map[string]any{
		"first_name": "Anne",
		"phone":      "555-0100",
	}, bearerFor(t, "acc-1"))

	assert.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	data := body["data"].(map[string]any)
	assert.Equal(t, "Anne", data["first_name"])
	assert.Equal(t, "555-0100", data["phone"])
	assert.Equal(t, "Archer", data["last_name"], "unset fields are untouched")
}

func TestUpdateProfileEndpoint_RequiresAuth(t *testing.T) {
	router := newTestRouter(new(mockAccountRepo))

	rr := doJSON(t, router, http.MethodPut, "/api/v1/users/me", map[string]any{
		"first_name": "Anne",
	})

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestChangePasswordEndpoint_Success(t *testing.T) {
	repo := new(mockAccountRepo)
	acc := storedAccount(t, "secret6")
	repo.On("GetByID", mock.Anything, "acc-1").Return(acc, nil)
	repo.On("GetByIDWithDigest", mock.Anything, "acc-1").Return(acc, nil)
	repo.On("UpdatePassword", mock.Anything, "acc-1", mock.AnythingOfType("string")).Return(nil)
	router := newTestRouter(repo)

	rr := doJSON(t, router, http.MethodPut, "/api/v1/users/me/password", map[string]any{
		"current_password": "secret6",
		"new_password":     "newpass6",
	}, bearerFor(t, "acc-1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	repo.AssertCalled(t, "UpdatePassword", mock.Anything, "acc-1", mock.AnythingOfType("string"))
}

func TestChangePasswordEndpoint_WrongCurrent(t *testing.T) {
	repo := new(mockAccountRepo)
	acc := storedAccount(t, "secret6")
	repo.On("GetByID", mock.Anything, "acc-1").Return(acc, nil)
	repo.On("GetByIDWithDigest", mock.Anything, "acc-1").Return(acc, nil)
	router := newTestRouter(repo)

	rr := doJSON(t, router, http.MethodPut, "/api/v1/users/me/password", map[string]any{
		"current_password": "wrong66",
		"new_password":     "newpass6",
	}, bearerFor(t, "acc-1"))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_CREDENTIALS")
}

func TestDeactivateEndpoint_Success(t *testing.T) {
	repo := new(mockAccountRepo)
	acc := storedAccount(t, "secret6")
	repo.On("GetByID", mock.Anything, "acc-1").Return(acc, nil)
	repo.On("SetActive", mock.Anything, "acc-1", false).Return(nil)
	router := newTestRouter(repo)

	rr := doJSON(t, router, http.MethodPut, "/api/v1/users/me/deactivate", nil, bearerFor(t, "acc-1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "deactivated")
	repo.AssertCalled(t, "SetActive", mock.Anything, "acc-1", false)
}

// --- Admin ---

func adminAccount() *domain.Account {
	return &domain.Account{
		ID:       "admin-1",
		Handle:   "root",
		Email:    "root@ex.com",
		Role:     domain.RoleAdmin,
		IsActive: true,
	}
}

func TestAdminListEndpoint_Success(t *testing.T) {
	repo := new(mockAccountRepo)
	repo.On("GetByID", mock.Anything, "admin-1").Return(adminAccount(), nil)
	repo.On("List", mock.Anything).Return([]domain.Account{
		{ID: "acc-1", Handle: "ann"},
		{ID: "acc-2", Handle: "bob"},
	}, nil)
	router := newTestRouter(repo)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/admin/users/", nil, bearerFor(t, "admin-1"))

	assert.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	data := body["data"].([]any)
	assert.Len(t, data, 2)
}

func TestAdminListEndpoint_ForbiddenForUser(t *testing.T) {
	repo := new(mockAccountRepo)
	repo.On("GetByID", mock.Anything, "acc-1").Return(storedAccount(t, "secret6"), nil)
	router := newTestRouter(repo)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/admin/users/", nil, bearerFor(t, "acc-1"))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	repo.AssertNotCalled(t, "List", mock.Anything)
}

func TestAdminGetEndpoint_Success(t *testing.T) {
	repo := new(mockAccountRepo)
	repo.On("GetByID", mock.Anything, "admin-1").Return(adminAccount(), nil)
	repo.On("GetByID", mock.Anything, "acc-1").Return(storedAccount(t, "secret6"), nil)
	router := newTestRouter(repo)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/admin/users/acc-1", nil, bearerFor(t, "admin-1"))

	assert.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	data := body["data"].(map[string]any)
	assert.Equal(t, "acc-1", data["id"])
}

func TestAdminSetRoleEndpoint_Success(t *testing.T) {
	repo := new(mockAccountRepo)
	repo.On("GetByID", mock.Anything, "admin-1").Return(adminAccount(), nil)
	repo.On("GetByID", mock.Anything, "acc-1").Return(storedAccount(t, "secret6"), nil)
	repo.On("SetRole", mock.Anything, "acc-1", domain.RoleProcessor).Return(nil)
	router := newTestRouter(repo)

	rr := doJSON(t, router, http.MethodPut, "/api/v1/admin/users/acc-1/role", map[string]any{
		"role": "processor",
	}, bearerFor(t, "admin-1"))

	assert.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	data := body["data"].(map[string]any)
	assert.Equal(t, "processor", data["role"])
}

func TestAdminSetRoleEndpoint_InvalidRole(t *testing.T) {
	repo := new(mockAccountRepo)
	repo.On("GetByID", mock.Anything, "admin-1").Return(adminAccount(), nil)
	router := newTestRouter(repo)

	rr := doJSON(t, router, http.MethodPut, "/api/v1/admin/users/acc-1/role", map[string]any{
		"role": "root",
	}, bearerFor(t, "admin-1"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	repo.AssertNotCalled(t, "SetRole", mock.Anything, mock.Anything, mock.Anything)
}
