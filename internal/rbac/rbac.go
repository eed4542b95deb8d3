// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

/*
Package rbac implements the role and permission graph.

Roles group permissions; users hold roles; the effective permission set of a
user is the union of active permission codes across all held roles. The graph
is the single source of authorization truth: token claims carry a snapshot,
but enforcement always resolves against the live graph.

# Architecture

  - Service: Orchestrates role/permission administration and resolution.
  - Repository: Postgres-backed storage for roles, permissions and the
    role-permission and user-role edges.
  - Default role: Exactly one role may be flagged as default at a time; new
    accounts receive it on creation.

Deleting graph nodes is deliberately conservative: a role still assigned to
users, or a permission still attached to roles, refuses deletion rather than
cascading.
*/
package rbac

import "time"

// # Domain Entities

// Role is a named grant bundle.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	IsDefault   bool         `json:"is_default"`
	Permissions []Permission `json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Permission is a single grantable capability, identified by its code
// (for example "USER_READ"). Category and Service classify the permission
// for administration; neither participates in enforcement. Deactivated
// permissions stay attached to roles but stop contributing to effective
// permission sets.
type Permission struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Service     string    `json:"service,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasCode reports whether the given permission code is present in codes.
// Pure helper used by enforcement points after resolution.
func HasCode(codes []string, required string) bool {
	for _, code := range codes {
		if code == required {
			return true
		}
	}
	return false
}

// # Well-Known Permission Codes

// Built-in permission codes seeded by the initial migration. They gate the
// administrative HTTP surface; deployments may define further codes freely.
const (
	PermUserRead         = "USER_READ"
	PermUserManage       = "USER_MANAGE"
	PermRoleManage       = "ROLE_MANAGE"
	PermPermissionManage = "PERMISSION_MANAGE"
	PermAuditRead        = "AUDIT_READ"
)

// # Field Identifiers

// Global field names for validation in the rbac domain.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldCode        = "code"
	FieldCategory    = "category"
	FieldService     = "service"
	FieldRoleID      = "role_id"
	FieldPermID      = "permission_id"
)
