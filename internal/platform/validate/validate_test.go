// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "name", "Identra", false},
		{"empty_string", "name", "", true},
		{"whitespace_only", "name", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_Email checks the email format validation rule.
*/
func TestValidator_Email(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		isValid bool
	}{
		{"valid_email", "test@example.com", true},
		{"invalid_format", "invalid-email", false},
		{"missing_domain", "test@", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Email("email", tt.email)

			if tt.isValid {
				assert.False(t, v.HasErrors())
			} else {
				assert.True(t, v.HasErrors())
			}
		})
	}
}

/*
TestValidator_Code checks the authorization code format rule.
*/
func TestValidator_Code(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		isValid bool
	}{
		{"simple", "USER_READ", true},
		{"with_digits", "DOC_V2_WRITE", true},
		{"single_letter", "X", true},
		{"lowercase", "user_read", false},
		{"leading_digit", "2FA_MANAGE", false},
		{"hyphenated", "USER-READ", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Code("code", tt.code)

			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_Lengths checks MinLen and MaxLen with multi-byte runes counted
as single characters.
*/
func TestValidator_Lengths(t *testing.T) {
	v := &validate.Validator{}
	v.MinLen("username", "ab", 3)
	assert.True(t, v.HasErrors())

	v = &validate.Validator{}
	v.MaxLen("name", "héllo", 5)
	assert.False(t, v.HasErrors())

	v = &validate.Validator{}
	v.MaxLen("name", "toolong", 5)
	assert.True(t, v.HasErrors())
}

/*
TestValidator_PositiveID checks the identifier rule boundaries.
*/
func TestValidator_PositiveID(t *testing.T) {
	tests := []struct {
		name    string
		value   int64
		isValid bool
	}{
		{"positive", 1, true},
		{"zero", 0, false},
		{"negative", -5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.PositiveID("role_id", tt.value)

			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_OneOf checks set membership validation.
*/
func TestValidator_OneOf(t *testing.T) {
	v := &validate.Validator{}
	v.OneOf("status", "active", "active", "revoked", "expired")
	assert.False(t, v.HasErrors())

	v = &validate.Validator{}
	v.OneOf("status", "pending", "active", "revoked", "expired")
	assert.True(t, v.HasErrors())
}

/*
TestValidator_Chaining verifies that errors accumulate across a fluent chain
and every failing field appears in the details.
*/
func TestValidator_Chaining(t *testing.T) {
	v := &validate.Validator{}
	v.Required("username", "").
		Email("email", "nope").
		Code("code", "bad-code").
		Custom("ttl", true, "Must not be negative")

	err := v.Err()
	require.NotNil(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	require.Len(t, ae.Details, 4)

	fields := make([]string, 0, len(ae.Details))
	for _, detail := range ae.Details {
		fields = append(fields, detail.Field)
	}
	assert.ElementsMatch(t, []string{"username", "email", "code", "ttl"}, fields)
}
