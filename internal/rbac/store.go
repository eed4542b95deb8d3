// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package rbac

import (
	"context"

	"github.com/identra/identra/pkg/pagination"
)

// # Role Data Access

// RoleRepository defines the data access contract for roles and their edges.
type RoleRepository interface {

	/*
		Create persists a new role.

		Parameters:
		  - context: context.Context
		  - role: *Role

		Returns:
		  - error: Conflict on duplicate name, or persistence failures
	*/
	Create(context context.Context, role *Role) error

	/*
		FindByID returns the role with the given ID, without permissions.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - *Role: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByID(context context.Context, id int64) (*Role, error)

	/*
		FindByName returns the role with the given name.

		Parameters:
		  - context: context.Context
		  - name: string

		Returns:
		  - *Role: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByName(context context.Context, name string) (*Role, error)

	/*
		List returns a page of roles ordered by name.

		Parameters:
		  - context: context.Context
		  - params: pagination.Params

		Returns:
		  - []Role: Page of roles
		  - int64: Total role count
		  - error: Retrieval failures
	*/
	List(context context.Context, params pagination.Params) ([]Role, int64, error)

	/*
		Update persists changes to a role's name and description.

		Parameters:
		  - context: context.Context
		  - role: *Role

		Returns:
		  - error: Persistence failures
	*/
	Update(context context.Context, role *Role) error

	/*
		Delete removes the role and its permission edges.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, id int64) error

	/*
		SetDefault atomically makes the given role the single default role,
		clearing the flag from any previous holder in the same statement.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - error: apperr.NotFound or persistence failures
	*/
	SetDefault(context context.Context, id int64) error

	/*
		FindDefault returns the current default role, if one is flagged.

		Parameters:
		  - context: context.Context

		Returns:
		  - *Role: Default role
		  - error: apperr.NotFound when no default is configured
	*/
	FindDefault(context context.Context) (*Role, error)

	/*
		AddPermission attaches a permission to a role. Idempotent: attaching
		an already-attached permission succeeds without effect.

		Parameters:
		  - context: context.Context
		  - roleID: int64
		  - permissionID: int64

		Returns:
		  - error: Persistence failures
	*/
	AddPermission(context context.Context, roleID, permissionID int64) error

	/*
		RemovePermission detaches a permission from a role.

		Parameters:
		  - context: context.Context
		  - roleID: int64
		  - permissionID: int64

		Returns:
		  - error: Persistence failures
	*/
	RemovePermission(context context.Context, roleID, permissionID int64) error

	/*
		PermissionsForRole returns every permission attached to the role.

		Parameters:
		  - context: context.Context
		  - roleID: int64

		Returns:
		  - []Permission: Attached permissions, active and inactive
		  - error: Retrieval failures
	*/
	PermissionsForRole(context context.Context, roleID int64) ([]Permission, error)

	/*
		RolesForUser returns every role held by the user.

		Parameters:
		  - context: context.Context
		  - userID: int64

		Returns:
		  - []Role: Held roles, without permissions
		  - error: Retrieval failures
	*/
	RolesForUser(context context.Context, userID int64) ([]Role, error)

	/*
		CountAssignedUsers returns how many users currently hold the role.

		Parameters:
		  - context: context.Context
		  - roleID: int64

		Returns:
		  - int64: Assignment count
		  - error: Retrieval failures
	*/
	CountAssignedUsers(context context.Context, roleID int64) (int64, error)

	/*
		ResolvePermissionCodes returns the distinct active permission codes
		effective for the user across all held roles.

		Parameters:
		  - context: context.Context
		  - userID: int64

		Returns:
		  - []string: Sorted distinct permission codes
		  - error: Retrieval failures
	*/
	ResolvePermissionCodes(context context.Context, userID int64) ([]string, error)
}

// # Permission Data Access

// PermissionFilter narrows a permission listing. Zero-valued fields are
// ignored; non-empty fields are combined with AND.
type PermissionFilter struct {
	Category string
	Service  string
}

// PermissionRepository defines the data access contract for permissions.
type PermissionRepository interface {

	/*
		Create persists a new permission.

		Parameters:
		  - context: context.Context
		  - permission: *Permission

		Returns:
		  - error: Conflict on duplicate code, or persistence failures
	*/
	Create(context context.Context, permission *Permission) error

	/*
		FindByID returns the permission with the given ID.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - *Permission: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByID(context context.Context, id int64) (*Permission, error)

	/*
		FindByCode returns the permission with the given code.

		Parameters:
		  - context: context.Context
		  - code: string

		Returns:
		  - *Permission: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByCode(context context.Context, code string) (*Permission, error)

	/*
		List returns a page of permissions matching the filter, ordered by code.

		Parameters:
		  - context: context.Context
		  - filter: PermissionFilter
		  - params: pagination.Params

		Returns:
		  - []Permission: Page of permissions
		  - int64: Total matching count
		  - error: Retrieval failures
	*/
	List(context context.Context, filter PermissionFilter, params pagination.Params) ([]Permission, int64, error)

	/*
		Update persists changes to a permission's descriptive fields and
		active flag. The code is immutable.

		Parameters:
		  - context: context.Context
		  - permission: *Permission

		Returns:
		  - error: Persistence failures
	*/
	Update(context context.Context, permission *Permission) error

	/*
		Delete removes the permission.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, id int64) error

	/*
		CountAttachedRoles returns how many roles currently carry the permission.

		Parameters:
		  - context: context.Context
		  - permissionID: int64

		Returns:
		  - int64: Attachment count
		  - error: Retrieval failures
	*/
	CountAttachedRoles(context context.Context, permissionID int64) (int64, error)
}
