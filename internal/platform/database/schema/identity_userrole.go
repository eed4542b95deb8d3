// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package schema

// IdentityUserRoleTable represents the 'identity.userrole' join table
type IdentityUserRoleTable struct {
	Table     string
	UserID    string
	RoleID    string
	CreatedAt string
}

// IdentityUserRole is the schema definition for identity.userrole
var IdentityUserRole = IdentityUserRoleTable{
	Table:     "identity.userrole",
	UserID:    "userid",
	RoleID:    "roleid",
	CreatedAt: "createdat",
}
