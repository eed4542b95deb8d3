// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package auth

// # Authentication Constraints

const (
	// RefreshTokenLength is the byte length of the random refresh token
	// before URL-safe encoding.
	RefreshTokenLength = 32

	// DeviceNameMaxLen bounds the optional client-supplied device label.
	DeviceNameMaxLen = 100
)

// # Field Identifiers

// Global field names for validation and response mapping in the auth domain.
const (
	FieldUsername     = "username"
	FieldPassword     = "password"
	FieldRefreshToken = "refresh_token"
	FieldDeviceName   = "device_name"
	FieldAccessToken  = "access_token"
	FieldTokenType    = "token_type"
	FieldExpiresIn    = "expires_in"
	FieldUser         = "user"
	FieldValid        = "valid"
	FieldRevoked      = "revoked_sessions"
)
