package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel verification failures. A tampered token is reported as
// ErrInvalidToken regardless of its expiry; ErrExpiredToken is only returned
// for tokens whose signature verified.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims represents the JWT claims for a session token.
type Claims struct {
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed, time-bound session tokens.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenService creates a token service with the given signing secret and
// token lifetime.
func NewTokenService(secret string, lifetime time.Duration) *TokenService {
	return &TokenService{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Lifetime returns the configured token lifetime.
func (s *TokenService) Lifetime() time.Duration {
	return s.lifetime
}

// Issue creates a signed session token bound to the given account ID and
// returns it along with its expiry time.
func (s *TokenService) Issue(accountID string) (string, time.Time, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.lifetime)

	claims := &Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "account-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify checks a session token and returns the embedded account ID.
// Signature integrity is checked before expiry: a malformed or tampered
// token yields ErrInvalidToken without reading claims, an authentic but
// elapsed token yields ErrExpiredToken.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	if !token.Valid || claims.AccountID == "" {
		return "", ErrInvalidToken
	}

	return claims.AccountID, nil
}
