package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/recircle/account-service/internal/auth"
	"github.com/recircle/account-service/internal/domain"
	apperrors "github.com/recircle/account-service/pkg/errors"
	"github.com/recircle/account-service/pkg/logger"
)

// sessionCookieName is the cookie carrying the session token.
const sessionCookieName = "token"

type contextKeyType string

const accountKey contextKeyType = "account"

// AccountLoader fetches the account identified by a verified session token.
type AccountLoader func(ctx context.Context, id string) (*domain.Account, error)

// Authenticate is the access gate. It verifies the session token from the
// Authorization header or the session cookie, loads the account, and rejects
// the request if the account is missing or deactivated.
func Authenticate(tokens *auth.TokenService, load AccountLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				writeGateError(w, "UNAUTHORIZED", "missing session token")
				return
			}

			accountID, err := tokens.Verify(tokenString)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					writeGateError(w, "UNAUTHORIZED", "session expired")
					return
				}
				writeGateError(w, "UNAUTHORIZED", "invalid session token")
				return
			}

			// The token only names the account; current role and active
			// status always come from the store.
			account, err := load(r.Context(), accountID)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					writeGateError(w, "UNAUTHORIZED", "invalid session token")
					return
				}
				writeAppError(w, r, err)
				return
			}

			// A deactivated account is rejected with the same generic
			// envelope as an unknown one; only login reports it distinctly.
			if !account.IsActive {
				writeGateError(w, "UNAUTHORIZED", "invalid session token")
				return
			}

			ctx := context.WithValue(r.Context(), accountKey, account)
			ctx = logger.WithAccountID(ctx, account.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows the request through only when the authenticated
// account holds one of the given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := AccountFromContext(r.Context())
			if account == nil {
				writeGateError(w, "UNAUTHORIZED", "account not authenticated")
				return
			}
			if _, ok := roleSet[account.Role]; !ok {
				writeJSON(w, http.StatusForbidden, response{
					Error: &errorResponse{Code: "FORBIDDEN", Message: "insufficient permissions"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccountFromContext extracts the authenticated account from the request context.
func AccountFromContext(ctx context.Context) *domain.Account {
	if account, ok := ctx.Value(accountKey).(*domain.Account); ok {
		return account
	}
	return nil
}

// tokenFromRequest reads the session token from the Authorization header,
// falling back to the session cookie.
func tokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func writeGateError(w http.ResponseWriter, code, message string) {
	writeJSON(w, http.StatusUnauthorized, response{
		Error: &errorResponse{Code: code, Message: message},
	})
}

// ContentTypeJSON rejects mutating requests whose declared Content-Type is
// not application/json. An absent Content-Type is tolerated.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	AllowedOrigins []string
	Environment    string
}

// CORS returns a middleware that sets Cross-Origin Resource Sharing headers.
// In development mode (or when AllowedOrigins contains "*"), a wildcard origin
// is used. Otherwise only the explicitly listed origins are allowed.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	allowWildcard := cfg.Environment == "development"
	originSet := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowWildcard = true
		}
		originSet[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if allowWildcard {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if origin != "" {
				if _, ok := originSet[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Correlation-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
