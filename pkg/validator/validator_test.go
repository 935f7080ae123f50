package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Role     string `validate:"omitempty,oneof=user collector processor"`
}

func TestValidate_Success(t *testing.T) {
	f := signupForm{Email: "ann@example.com", Password: "hunter2"}
	assert.NoError(t, Validate(f))
}

func TestValidate_MissingRequired(t *testing.T) {
	f := signupForm{Password: "hunter2"}
	err := Validate(f)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "Email")
	assert.Equal(t, "is required", fields["Email"])
}

func TestValidate_InvalidEmail(t *testing.T) {
	f := signupForm{Email: "not-an-email", Password: "hunter2"}
	err := Validate(f)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be a valid email address", valErr.Fields()["Email"])
}

func TestValidate_MinLength(t *testing.T) {
	f := signupForm{Email: "ann@example.com", Password: "short"}
	err := Validate(f)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be at least 6 characters", valErr.Fields()["Password"])
}

func TestValidate_OneOf(t *testing.T) {
	f := signupForm{Email: "ann@example.com", Password: "hunter2", Role: "superuser"}
	err := Validate(f)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["Role"], "must be one of")
}

func TestValidate_MultipleErrors(t *testing.T) {
	f := signupForm{}
	err := Validate(f)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "Email")
	assert.Contains(t, fields, "Password")
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(signupForm{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Email'")
	assert.Contains(t, err.Error(), "is required")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"Email":"ann@example.com","Password":"hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var f signupForm
	err := DecodeAndValidate(req, &f)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", f.Email)
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{not json"))

	var f signupForm
	err := DecodeAndValidate(req, &f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidJSONInvalidStruct(t *testing.T) {
	body := `{"Email":"bad","Password":"hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var f signupForm
	err := DecodeAndValidate(req, &f)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "Email")
}
