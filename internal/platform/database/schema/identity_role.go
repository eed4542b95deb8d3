// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package schema

// IdentityRoleTable represents the 'identity.role' table
type IdentityRoleTable struct {
	Table       string
	ID          string
	Name        string
	Description string
	IsDefault   string
	CreatedAt   string
	UpdatedAt   string
}

// IdentityRole is the schema definition for identity.role
var IdentityRole = IdentityRoleTable{
	Table:       "identity.role",
	ID:          "id",
	Name:        "name",
	Description: "description",
	IsDefault:   "isdefault",
	CreatedAt:   "createdat",
	UpdatedAt:   "updatedat",
}

// Columns returns all standard column names
func (t IdentityRoleTable) Columns() []string {
	return []string{t.ID, t.Name, t.Description, t.IsDefault, t.CreatedAt, t.UpdatedAt}
}
