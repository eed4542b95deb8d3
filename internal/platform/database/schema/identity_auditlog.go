// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package schema

// IdentityAuditLogTable represents the 'identity.auditlog' table
type IdentityAuditLogTable struct {
	Table      string
	ID         string
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Before     string
	After      string
	IPAddress  string
	UserAgent  string
	CreatedAt  string
}

var IdentityAuditLog = IdentityAuditLogTable{
	Table:      "identity.auditlog",
	ID:         "id",
	ActorID:    "actorid",
	Action:     "action",
	EntityType: "entitytype",
	EntityID:   "entityid",
	Before:     "before",
	After:      "after",
	IPAddress:  "ipaddress",
	UserAgent:  "useragent",
	CreatedAt:  "createdat",
}

// Columns returns all standard column names
func (t IdentityAuditLogTable) Columns() []string {
	return []string{
		t.ID, t.ActorID, t.Action, t.EntityType, t.EntityID, t.Before, t.After, t.IPAddress, t.UserAgent, t.CreatedAt,
	}
}
