// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

/*
Package audit implements the tamper-evident activity trail of the platform.

Every security-relevant mutation (logins, token rotations, role and permission
changes, account administration) produces one immutable audit entry. Entries
are append-only: nothing in this package updates or deletes a recorded row.

# Architecture

  - Recorder: Writes entries, joining the caller's database transaction so a
    mutation and its trail commit or roll back together.
  - Repository: Postgres-backed storage with composable query filters.
  - Handler: Read-only paginated HTTP access for administrators.

The recorder treats a failed write as a failure of the operation being
audited, never as an ignorable side effect.
*/
package audit

import "time"

// # Action Taxonomy

// Audit action codes. These values are persisted; never renumber or rename
// an existing code, only append new ones.
const (
	ActionUserLogin          = "USER_LOGIN"
	ActionLoginFailed        = "LOGIN_FAILED"
	ActionTokenRefresh       = "TOKEN_REFRESH"
	ActionUserLogout         = "USER_LOGOUT"
	ActionUserLogoutAll      = "USER_LOGOUT_ALL_SESSIONS"
	ActionUserCreated        = "USER_CREATED"
	ActionUserAutoRegistered = "USER_AUTO_REGISTERED"
	ActionUserUpdated        = "USER_UPDATED"
	ActionUserDeleted        = "USER_DELETED"
	ActionRoleCreated        = "ROLE_CREATED"
	ActionRoleUpdated        = "ROLE_UPDATED"
	ActionRoleDeleted        = "ROLE_DELETED"
	ActionPermCreated        = "PERMISSION_CREATED"
	ActionPermUpdated        = "PERMISSION_UPDATED"
	ActionPermDeleted        = "PERMISSION_DELETED"
	ActionRolesAssigned      = "USER_ROLES_ASSIGNED"
	ActionDefaultRoleSet     = "DEFAULT_ROLE_SET"
)

// Entity type labels used in the entitytype column.
const (
	EntityUser       = "USER"
	EntityRole       = "ROLE"
	EntityPermission = "PERMISSION"
	EntitySession    = "SESSION"
)

// # Domain Entities

// Entry is a single immutable audit record.
type Entry struct {
	ID         int64     `json:"id"`
	ActorID    *int64    `json:"actor_id,omitempty"` // nil for anonymous events such as failed logins
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   *int64    `json:"entity_id,omitempty"`
	Before     []byte    `json:"before,omitempty"` // JSON snapshot prior to the change
	After      []byte    `json:"after,omitempty"`  // JSON snapshot after the change
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Actor identifies the principal performing an audited operation along with
// the request metadata worth retaining. A nil ID marks an anonymous actor.
type Actor struct {
	ID        *int64
	IPAddress string
	UserAgent string
}

// Event is the recorder input. Before and After may hold any JSON-marshalable
// value; the recorder serializes them before persistence.
type Event struct {
	ActorID    *int64
	Action     string
	EntityType string
	EntityID   *int64
	Before     any
	After      any
	IPAddress  string
	UserAgent  string
}

// Filter narrows an audit query. Zero-valued fields are ignored, so filters
// compose freely.
type Filter struct {
	ActorID    *int64
	Action     string
	EntityType string
	EntityID   *int64
	From       *time.Time
	To         *time.Time
}

// # Field Identifiers

// Query-string parameter names accepted by the audit HTTP surface.
const (
	FieldActorID    = "actor_id"
	FieldAction     = "action"
	FieldEntityType = "entity_type"
	FieldEntityID   = "entity_id"
	FieldFrom       = "from"
	FieldTo         = "to"
)
