// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

/*
Package schema centralizes database table and column names.

Every repository builds its SQL from these descriptors instead of string
literals, so a rename touches exactly one file and typos surface as compile
errors rather than runtime failures.
*/
package schema

// IdentityUserTable represents the 'identity.user' table
type IdentityUserTable struct {
	Table       string
	ID          string
	Username    string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	UserType    string
	IsEnabled   string
	IsLocked    string
	LastLoginAt string
	CreatedAt   string
	UpdatedAt   string
	DeletedAt   string
}

// IdentityUser is the schema definition for identity.user
var IdentityUser = IdentityUserTable{
	Table:       "identity.user",
	ID:          "id",
	Username:    "username",
	Email:       "email",
	Password:    "passwordhash",
	FirstName:   "firstname",
	LastName:    "lastname",
	UserType:    "usertype",
	IsEnabled:   "isenabled",
	IsLocked:    "islocked",
	LastLoginAt: "lastloginat",
	CreatedAt:   "createdat",
	UpdatedAt:   "updatedat",
	DeletedAt:   "deletedat",
}

// Columns returns all standard column names
func (t IdentityUserTable) Columns() []string {
	return []string{
		t.ID, t.Username, t.Email, t.Password, t.FirstName, t.LastName, t.UserType,
		t.IsEnabled, t.IsLocked, t.LastLoginAt, t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}
