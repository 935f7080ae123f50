package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recircle/account-service/internal/auth"
	"github.com/recircle/account-service/internal/domain"
	apperrors "github.com/recircle/account-service/pkg/errors"
)

// --- Access Gate Tests ---

func activeAccountLoader(account *domain.Account) AccountLoader {
	return func(_ context.Context, id string) (*domain.Account, error) {
		if account != nil && account.ID == id {
			return account, nil
		}
		return nil, apperrors.NotFound("account", id)
	}
}

func gateHandler(tokens *auth.TokenService, load AccountLoader) http.Handler {
	return Authenticate(tokens, load)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := AccountFromContext(r.Context())
		w.Header().Set("X-Account-ID", account.ID)
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthenticate_ValidBearerToken(t *testing.T) {
	tokens := testTokens()
	account := &domain.Account{ID: "acc-1", Role: domain.RoleUser, IsActive: true}
	handler := gateHandler(tokens, activeAccountLoader(account))

	token, _, err := tokens.Issue("acc-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "acc-1", rr.Header().Get("X-Account-ID"))
}

func TestAuthenticate_ValidCookieToken(t *testing.T) {
	tokens := testTokens()
	account := &domain.Account{ID: "acc-1", Role: domain.RoleUser, IsActive: true}
	handler := gateHandler(tokens, activeAccountLoader(account))

	token, _, err := tokens.Issue("acc-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthenticate_MissingToken(t *testing.T) {
	handler := gateHandler(testTokens(), activeAccountLoader(nil))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "missing session token")
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	handler := gateHandler(testTokens(), activeAccountLoader(nil))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthenticate_TamperedToken(t *testing.T) {
	tokens := testTokens()
	account := &domain.Account{ID: "acc-1", Role: domain.RoleUser, IsActive: true}
	handler := gateHandler(tokens, activeAccountLoader(account))

	token, _, err := tokens.Issue("acc-1")
	require.NoError(t, err)

	// Flip a character in the signature segment.
	tampered := token[:len(token)-2] + flipChar(token[len(token)-2:])

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tampered)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid session token")
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	// Same secret, negative lifetime: the token is already expired.
	expiredIssuer := auth.NewTokenService(testSecret, -time.Hour)
	account := &domain.Account{ID: "acc-1", Role: domain.RoleUser, IsActive: true}
	handler := gateHandler(testTokens(), activeAccountLoader(account))

	token, _, err := expiredIssuer.Issue("acc-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "session expired")
}

func TestAuthenticate_DeletedAccount(t *testing.T) {
	tokens := testTokens()
	handler := gateHandler(tokens, activeAccountLoader(nil))

	token, _, err := tokens.Issue("acc-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthenticate_DeactivatedAccount(t *testing.T) {
	tokens := testTokens()
	account := &domain.Account{ID: "acc-1", Role: domain.RoleUser, IsActive: false}
	handler := gateHandler(tokens, activeAccountLoader(account))

	token, _, err := tokens.Issue("acc-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "UNAUTHORIZED")
	// The gate never says whether the account was unknown or deactivated.
	assert.NotContains(t, rr.Body.String(), "ACCOUNT_DEACTIVATED")
	assert.NotContains(t, rr.Body.String(), "deactivated")
}

func flipChar(s string) string {
	if s == "" {
		return s
	}
	if s[0] == 'A' {
		return "B" + s[1:]
	}
	return "A" + s[1:]
}

// --- RequireRole Tests ---

func roleProtected(tokens *auth.TokenService, account *domain.Account, roles ...string) http.Handler {
	gate := Authenticate(tokens, activeAccountLoader(account))
	return gate(RequireRole(roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
}

func TestRequireRole_Allowed(t *testing.T) {
	tokens := testTokens()
	account := &domain.Account{ID: "acc-1", Role: domain.RoleAdmin, IsActive: true}
	handler := roleProtected(tokens, account, domain.RoleAdmin)

	token, _, err := tokens.Issue("acc-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequireRole_Forbidden(t *testing.T) {
	tokens := testTokens()
	account := &domain.Account{ID: "acc-1", Role: domain.RoleUser, IsActive: true}
	handler := roleProtected(tokens, account, domain.RoleAdmin)

	token, _, err := tokens.Issue("acc-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "FORBIDDEN")
}

func TestRequireRole_MultipleRoles(t *testing.T) {
	tokens := testTokens()
	account := &domain.Account{ID: "acc-1", Role: domain.RoleCollector, IsActive: true}
	handler := roleProtected(tokens, account, domain.RoleAdmin, domain.RoleCollector)

	token, _, err := tokens.Issue("acc-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ops", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

// --- ContentTypeJSON Tests ---

func TestContentTypeJSON_PostWithWrongContentType(t *testing.T) {
	handler := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/test", strings.NewReader(`key=value`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	assert.Contains(t, rr.Body.String(), "UNSUPPORTED_MEDIA_TYPE")
}

func TestContentTypeJSON_GetWithoutContentType(t *testing.T) {
	called := false
	handler := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, called)
}
