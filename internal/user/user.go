// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

/*
Package user implements account storage and administration.

It defines the User entity and the credential store behind authentication,
plus the administrative lifecycle: creation with the default role, profile
updates, enable/disable, lock/unlock, role assignment and soft deletion.

# Architecture

  - Service: Orchestrates audited account administration.
  - Repository: Postgres-backed storage; soft-deleted accounts are invisible
    to every read path.
  - Flags: IsEnabled is an administrative switch, IsLocked is a security
    hold. Either one blocks authentication without revealing which.
*/
package user

import "time"

// # Domain Entities

// User represents an account in the identity store.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Explicitly omitted from JSON for security.
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	UserType     string     `json:"user_type"`
	IsEnabled    bool       `json:"is_enabled"`
	IsLocked     bool       `json:"is_locked"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	Roles        []string   `json:"roles,omitempty"` // Role names, loaded on demand.
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// # Account Classification

// Account type codes. The type classifies the account for administration
// and reporting; it grants nothing by itself, permissions always come from
// the role graph.
const (
	UserTypeAdmin    = "ADMIN"
	UserTypeEmployee = "EMPLOYEE"
	UserTypeClient   = "CLIENT"
)

// ValidUserType reports whether the code names a known account type.
func ValidUserType(userType string) bool {
	switch userType {
	case UserTypeAdmin, UserTypeEmployee, UserTypeClient:
		return true
	}
	return false
}

// CanAuthenticate reports whether the account may establish a session.
// Disabled and locked accounts are rejected identically upstream so the
// reason is never leaked to the caller.
func (user *User) CanAuthenticate() bool {
	return user.IsEnabled && !user.IsLocked
}

// # Field Identifiers

// Global field names for validation in the user domain.
const (
	FieldUsername  = "username"
	FieldEmail     = "email"
	FieldPassword  = "password"
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldUserType  = "user_type"
	FieldRoleIDs   = "role_ids"
)
