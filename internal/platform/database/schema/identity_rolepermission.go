// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package schema

// IdentityRolePermissionTable represents the 'identity.rolepermission' join table
type IdentityRolePermissionTable struct {
	Table        string
	RoleID       string
	PermissionID string
	CreatedAt    string
}

// IdentityRolePermission is the schema definition for identity.rolepermission
var IdentityRolePermission = IdentityRolePermissionTable{
	Table:        "identity.rolepermission",
	RoleID:       "roleid",
	PermissionID: "permissionid",
	CreatedAt:    "createdat",
}
