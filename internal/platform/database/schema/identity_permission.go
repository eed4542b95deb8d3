// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package schema

// IdentityPermissionTable represents the 'identity.permission' table
type IdentityPermissionTable struct {
	Table       string
	ID          string
	Code        string
	Name        string
	Description string
	Category    string
	Service     string
	IsActive    string
	CreatedAt   string
	UpdatedAt   string
}

// IdentityPermission is the schema definition for identity.permission
var IdentityPermission = IdentityPermissionTable{
	Table:       "identity.permission",
	ID:          "id",
	Code:        "code",
	Name:        "name",
	Description: "description",
	Category:    "category",
	Service:     "service",
	IsActive:    "isactive",
	CreatedAt:   "createdat",
	UpdatedAt:   "updatedat",
}

// Columns returns all standard column names
func (t IdentityPermissionTable) Columns() []string {
	return []string{t.ID, t.Code, t.Name, t.Description, t.Category, t.Service, t.IsActive, t.CreatedAt, t.UpdatedAt}
}
