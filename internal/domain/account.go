package domain

import (
	"strings"
	"time"
)

// Field length limits, shared by handlers and the service layer.
const (
	MaxHandleLen      = 50
	MaxNameLen        = 50
	MaxDisplayNameLen = 100
	MaxPhoneLen       = 20
	MaxCompanyLen     = 100
	MinPasswordLen    = 6
)

// Address is the optional structured address embedded in an account.
// All fields default to empty strings.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// Account is the durable identity record. PasswordDigest, ResetToken and
// ResetTokenExpiry are never serialized to callers.
type Account struct {
	ID               string     `json:"id"`
	Handle           string     `json:"handle"`
	Email            string     `json:"email"`
	PasswordDigest   string     `json:"-"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	DisplayName      string     `json:"display_name"`
	Phone            string     `json:"phone"`
	Company          string     `json:"company,omitempty"`
	Address          Address    `json:"address"`
	Role             string     `json:"role"`
	IsActive         bool       `json:"is_active"`
	TermsAccepted    bool       `json:"terms_accepted"`
	ResetToken       string     `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DeriveHandle computes the unique handle for an email address: the
// local-part before '@', trimmed and lower-cased.
func DeriveHandle(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if at := strings.IndexByte(email, '@'); at >= 0 {
		email = email[:at]
	}
	return email
}

// NormalizeEmail trims and lower-cases an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeLogin trims and lower-cases a login identifier (email or handle).
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}
