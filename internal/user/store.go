// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package user

import (
	"context"
	"time"

	"github.com/identra/identra/pkg/pagination"
)

// # User Data Access

// Repository defines the data access contract for user accounts.
// All read methods exclude soft-deleted accounts.
type Repository interface {

	/*
		Create persists a new account.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Conflict on duplicate username or email, or persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByID(context context.Context, id int64) (*User, error)

	/*
		FindByUsername returns the account with the given username.
		Matching is case-insensitive; the stored casing is preserved.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		FindByEmail returns the account with the given email. Matching
		is case-insensitive; the stored casing is preserved.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		ExistsByUsername reports whether a live account holds the username,
		ignoring case, like the unique index backing it.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - bool: Whether the username is taken
		  - error: Retrieval failures
	*/
	ExistsByUsername(context context.Context, username string) (bool, error)

	/*
		ExistsByEmail reports whether a live account holds the email,
		ignoring case.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - bool: Whether the email is taken
		  - error: Retrieval failures
	*/
	ExistsByEmail(context context.Context, email string) (bool, error)

	/*
		List returns a page of accounts ordered by username.

		Parameters:
		  - context: context.Context
		  - params: pagination.Params

		Returns:
		  - []User: Page of accounts
		  - int64: Total account count
		  - error: Retrieval failures
	*/
	List(context context.Context, params pagination.Params) ([]User, int64, error)

	/*
		ListByType returns a page of accounts of one type, ordered by username.

		Parameters:
		  - context: context.Context
		  - userType: string
		  - params: pagination.Params

		Returns:
		  - []User: Page of accounts
		  - int64: Total count of accounts with that type
		  - error: Retrieval failures
	*/
	ListByType(context context.Context, userType string, params pagination.Params) ([]User, int64, error)

	/*
		Update persists changes to email, name fields and account type.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: apperr.NotFound, Conflict on duplicate email, or persistence failures
	*/
	Update(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the account's password hash.

		Parameters:
		  - context: context.Context
		  - userID: int64
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID int64, newHash string) error

	/*
		SetEnabled flips the administrative enabled flag.

		Parameters:
		  - context: context.Context
		  - id: int64
		  - enabled: bool

		Returns:
		  - error: apperr.NotFound or persistence failures
	*/
	SetEnabled(context context.Context, id int64, enabled bool) error

	/*
		SetLocked flips the security lock flag.

		Parameters:
		  - context: context.Context
		  - id: int64
		  - locked: bool

		Returns:
		  - error: apperr.NotFound or persistence failures
	*/
	SetLocked(context context.Context, id int64, locked bool) error

	/*
		UpdateLastLogin stamps the most recent successful authentication.
		Last writer wins; concurrent logins do not need coordination.

		Parameters:
		  - context: context.Context
		  - id: int64
		  - at: time.Time

		Returns:
		  - error: Persistence failures
	*/
	UpdateLastLogin(context context.Context, id int64, at time.Time) error

	/*
		ReplaceRoles replaces the account's role set with the given role IDs.

		Parameters:
		  - context: context.Context
		  - userID: int64
		  - roleIDs: []int64

		Returns:
		  - error: Foreign key violations mapped to Conflict, or persistence failures
	*/
	ReplaceRoles(context context.Context, userID int64, roleIDs []int64) error

	/*
		AssignRole attaches a single role to the account, idempotently.

		Parameters:
		  - context: context.Context
		  - userID: int64
		  - roleID: int64

		Returns:
		  - error: Persistence failures
	*/
	AssignRole(context context.Context, userID, roleID int64) error

	/*
		SoftDelete marks the account as deleted without removing the row.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - error: apperr.NotFound or persistence failures
	*/
	SoftDelete(context context.Context, id int64) error
}

// SessionRevoker invalidates every active session of an account. The auth
// package provides the production implementation; account administration
// uses it so a disabled, locked or deleted account cannot keep an existing
// session alive.
type SessionRevoker interface {
	RevokeAllForUser(context context.Context, userID int64) (int64, error)
}
