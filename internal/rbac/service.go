// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package rbac

import (
	"context"
	"fmt"

	"github.com/identra/identra/internal/audit"
	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/pkg/pagination"
)

// # Contracts & Types

// TxRunner executes a function inside a database transaction.
// [postgres.TxManager] is the production implementation.
type TxRunner interface {
	WithinTx(context context.Context, fn func(context context.Context) error) error
}

// Auditor records audit events. [audit.Recorder] is the production
// implementation.
type Auditor interface {
	Record(context context.Context, event audit.Event) error
}

// Service orchestrates role and permission administration.
//
// # Review Process
//
// Every mutation in this service is paired with an audit write inside one
// transaction. Changes to that pairing must be reviewed by the security team.
type Service struct {
	roleRepository       RoleRepository
	permissionRepository PermissionRepository
	transactions         TxRunner
	auditor              Auditor
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	roleRepo RoleRepository,
	permissionRepo PermissionRepository,
	transactions TxRunner,
	auditor Auditor,
) *Service {
	return &Service{
		roleRepository:       roleRepo,
		permissionRepository: permissionRepo,
		transactions:         transactions,
		auditor:              auditor,
	}
}

// # Role Administration

// RoleInput holds the mutable fields of a role.
type RoleInput struct {
	Name        string
	Description string
}

/*
CreateRole persists a new role and records the creation.

Description: The role and its audit entry commit atomically. Duplicate
names surface as Conflict.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - input: RoleInput

Returns:
  - *Role: Created entity
  - error: Conflict, audit or storage failures
*/
func (service *Service) CreateRole(ctx context.Context, actor audit.Actor, input RoleInput) (*Role, error) {
	role := &Role{
		Name:        input.Name,
		Description: input.Description,
	}

	err := service.transactions.WithinTx(ctx, func(context context.Context) error {
		if err := service.roleRepository.Create(context, role); err != nil {
			return err
		}
		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionRoleCreated,
			EntityType: audit.EntityRole,
			EntityID:   &role.ID,
			After:      role,
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
	})
	if err != nil {
		return nil, err
	}

	return role, nil
}

/*
GetRole returns a role together with its attached permissions.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - *Role: Hydrated entity including permissions
  - error: apperr.NotFound or retrieval failures
*/
func (service *Service) GetRole(context context.Context, id int64) (*Role, error) {
	role, err := service.roleRepository.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	permissions, err := service.roleRepository.PermissionsForRole(context, id)
	if err != nil {
		return nil, fmt.Errorf("rbac_service_load_permissions_failed: %w", err)
	}
	role.Permissions = permissions

	return role, nil
}

/*
GetRoleByName returns a role by its unique name, with its permissions.

Parameters:
  - context: context.Context
  - name: string

Returns:
  - *Role: Hydrated entity including permissions
  - error: apperr.NotFound or retrieval failures
*/
func (service *Service) GetRoleByName(context context.Context, name string) (*Role, error) {
	role, err := service.roleRepository.FindByName(context, name)
	if err != nil {
		return nil, err
	}

	permissions, err := service.roleRepository.PermissionsForRole(context, role.ID)
	if err != nil {
		return nil, fmt.Errorf("rbac_service_load_permissions_failed: %w", err)
	}
	role.Permissions = permissions

	return role, nil
}

/*
ListRoles returns a page of roles ordered by name.

Parameters:
  - context: context.Context
  - params: pagination.Params

Returns:
  - []Role: Page of roles
  - int64: Total role count
  - error: Retrieval failures
*/
func (service *Service) ListRoles(context context.Context, params pagination.Params) ([]Role, int64, error) {
	return service.roleRepository.List(context, params)
}

/*
UpdateRole applies new name and description to an existing role.

Description: Captures the prior state for the audit trail, then persists
the change and the audit entry atomically.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - id: int64
  - input: RoleInput

Returns:
  - *Role: Updated entity
  - error: apperr.NotFound, Conflict, audit or storage failures
*/
func (service *Service) UpdateRole(ctx context.Context, actor audit.Actor, id int64, input RoleInput) (*Role, error) {
	var updated *Role

	err := service.transactions.WithinTx(ctx, func(context context.Context) error {
		role, err := service.roleRepository.FindByID(context, id)
		if err != nil {
			return err
		}
		before := *role

		role.Name = input.Name
		role.Description = input.Description

		if err := service.roleRepository.Update(context, role); err != nil {
			return err
		}

		updated = role
		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionRoleUpdated,
			EntityType: audit.EntityRole,
			EntityID:   &role.ID,
			Before:     before,
			After:      role,
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

/*
DeleteRole removes a role that is safe to delete.

Description: A role still held by users, or the current default role,
refuses deletion with Conflict instead of cascading.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - id: int64

Returns:
  - error: apperr.NotFound, Conflict, audit or storage failures
*/
func (service *Service) DeleteRole(ctx context.Context, actor audit.Actor, id int64) error {
	return service.transactions.WithinTx(ctx, func(context context.Context) error {
		role, err := service.roleRepository.FindByID(context, id)
		if err != nil {
			return err
		}

		if role.IsDefault {
			return apperr.Conflict("Default role cannot be deleted")
		}

		assigned, err := service.roleRepository.CountAssignedUsers(context, id)
		if err != nil {
			return err
		}
		if assigned > 0 {
			return apperr.Conflict("Role is still assigned to users")
		}

		if err := service.roleRepository.Delete(context, id); err != nil {
			return err
		}

		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionRoleDeleted,
			EntityType: audit.EntityRole,
			EntityID:   &id,
			Before:     role,
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
	})
}

/*
SetRoleAsDefault makes the given role the single default role.

Description: The default flag moves from the previous holder to the new one
in a single statement, so exactly one default exists at every point in time.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - id: int64

Returns:
  - *Role: The new default role
  - error: apperr.NotFound, audit or storage failures
*/
func (service *Service) SetRoleAsDefault(ctx context.Context, actor audit.Actor, id int64) (*Role, error) {
	var updated *Role

	err := service.transactions.WithinTx(ctx, func(context context.Context) error {
		previous, err := service.roleRepository.FindDefault(context)
		if err != nil && !apperr.IsCode(err, "NOT_FOUND") {
			return err
		}

		if err := service.roleRepository.SetDefault(context, id); err != nil {
			return err
		}

		role, err := service.roleRepository.FindByID(context, id)
		if err != nil {
			return err
		}
		updated = role

		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionDefaultRoleSet,
			EntityType: audit.EntityRole,
			EntityID:   &role.ID,
			Before:     previous,
			After:      role,
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

/*
GetDefaultRoles returns the roles new accounts receive.

Description: The policy enforces at most one default role, so the list
holds zero or one entries. The list shape keeps callers agnostic of that
policy and leaves room to relax it without an interface change.

Parameters:
  - context: context.Context

Returns:
  - []Role: Default roles, empty when none is configured
  - error: Retrieval failures
*/
func (service *Service) GetDefaultRoles(context context.Context) ([]Role, error) {
	role, err := service.roleRepository.FindDefault(context)
	if err != nil {
		if apperr.IsCode(err, "NOT_FOUND") {
			return []Role{}, nil
		}
		return nil, err
	}
	return []Role{*role}, nil
}

// # Role-Permission Edges

/*
AddPermissionToRole attaches a permission to a role.

Description: Idempotent: attaching an already-attached permission succeeds
without a duplicate edge or a duplicate audit entry side effect.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - roleID: int64
  - permissionID: int64

Returns:
  - error: apperr.NotFound for unknown role or permission, audit or storage failures
*/
func (service *Service) AddPermissionToRole(ctx context.Context, actor audit.Actor, roleID, permissionID int64) error {
	return service.transactions.WithinTx(ctx, func(context context.Context) error {
		role, err := service.roleRepository.FindByID(context, roleID)
		if err != nil {
			return err
		}
		permission, err := service.permissionRepository.FindByID(context, permissionID)
		if err != nil {
			return err
		}

		if err := service.roleRepository.AddPermission(context, roleID, permissionID); err != nil {
			return err
		}

		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionRoleUpdated,
			EntityType: audit.EntityRole,
			EntityID:   &role.ID,
			After:      map[string]string{"permission_added": permission.Code},
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
	})
}

/*
RemovePermissionFromRole detaches a permission from a role.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - roleID: int64
  - permissionID: int64

Returns:
  - error: apperr.NotFound when the edge does not exist, audit or storage failures
*/
func (service *Service) RemovePermissionFromRole(ctx context.Context, actor audit.Actor, roleID, permissionID int64) error {
	return service.transactions.WithinTx(ctx, func(context context.Context) error {
		permission, err := service.permissionRepository.FindByID(context, permissionID)
		if err != nil {
			return err
		}

		if err := service.roleRepository.RemovePermission(context, roleID, permissionID); err != nil {
			return err
		}

		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionRoleUpdated,
			EntityType: audit.EntityRole,
			EntityID:   &roleID,
			After:      map[string]string{"permission_removed": permission.Code},
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
	})
}

// # Permission Administration

// PermissionInput holds the mutable fields of a permission. Category and
// Service classify the permission in the catalog; the code is fixed at
// creation time.
type PermissionInput struct {
	Code        string
	Name        string
	Description string
	Category    string
	Service     string
}

/*
CreatePermission persists a new permission and records the creation.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - input: PermissionInput

Returns:
  - *Permission: Created entity, active by default
  - error: Conflict on duplicate code, audit or storage failures
*/
func (service *Service) CreatePermission(ctx context.Context, actor audit.Actor, input PermissionInput) (*Permission, error) {
	permission := &Permission{
		Code:        input.Code,
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		Service:     input.Service,
		IsActive:    true,
	}

	err := service.transactions.WithinTx(ctx, func(context context.Context) error {
		if err := service.permissionRepository.Create(context, permission); err != nil {
			return err
		}
		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionPermCreated,
			EntityType: audit.EntityPermission,
			EntityID:   &permission.ID,
			After:      permission,
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
	})
	if err != nil {
		return nil, err
	}

	return permission, nil
}

/*
GetPermission returns a permission by ID.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - *Permission: Hydrated entity
  - error: apperr.NotFound or retrieval failures
*/
func (service *Service) GetPermission(context context.Context, id int64) (*Permission, error) {
	return service.permissionRepository.FindByID(context, id)
}

/*
GetPermissionByCode returns a permission by its unique code.

Parameters:
  - context: context.Context
  - code: string

Returns:
  - *Permission: Hydrated entity
  - error: apperr.NotFound or retrieval failures
*/
func (service *Service) GetPermissionByCode(context context.Context, code string) (*Permission, error) {
	return service.permissionRepository.FindByCode(context, code)
}

/*
ListPermissions returns a page of permissions matching the filter, ordered
by code. Category and owning service narrow the catalog listing.

Parameters:
  - context: context.Context
  - filter: PermissionFilter
  - params: pagination.Params

Returns:
  - []Permission: Page of permissions
  - int64: Total matching count
  - error: Retrieval failures
*/
func (service *Service) ListPermissions(context context.Context, filter PermissionFilter, params pagination.Params) ([]Permission, int64, error) {
	return service.permissionRepository.List(context, filter, params)
}

/*
UpdatePermission applies new descriptive fields to an existing permission.

Description: The code is immutable once created; enforcement points refer
to permissions by code and a rename would silently change their meaning.
Name, description, category and owning service are free to change.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - id: int64
  - input: PermissionInput

Returns:
  - *Permission: Updated entity
  - error: apperr.NotFound, audit or storage failures
*/
func (service *Service) UpdatePermission(ctx context.Context, actor audit.Actor, id int64, input PermissionInput) (*Permission, error) {
	var updated *Permission

	err := service.transactions.WithinTx(ctx, func(context context.Context) error {
		permission, err := service.permissionRepository.FindByID(context, id)
		if err != nil {
			return err
		}
		before := *permission

		permission.Name = input.Name
		permission.Description = input.Description
		permission.Category = input.Category
		permission.Service = input.Service
		if err := service.permissionRepository.Update(context, permission); err != nil {
			return err
		}

		updated = permission
		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionPermUpdated,
			EntityType: audit.EntityPermission,
			EntityID:   &permission.ID,
			Before:     before,
			After:      permission,
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

/*
SetPermissionActive flips the active flag of a permission.

Description: Deactivation takes effect on the next authorization check for
every role carrying the permission; no role edges are touched.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - id: int64
  - active: bool

Returns:
  - *Permission: Updated entity
  - error: apperr.NotFound, audit or storage failures
*/
func (service *Service) SetPermissionActive(ctx context.Context, actor audit.Actor, id int64, active bool) (*Permission, error) {
	var updated *Permission

	err := service.transactions.WithinTx(ctx, func(context context.Context) error {
		permission, err := service.permissionRepository.FindByID(context, id)
		if err != nil {
			return err
		}
		if permission.IsActive == active {
			updated = permission
			return nil
		}
		before := *permission

		permission.IsActive = active
		if err := service.permissionRepository.Update(context, permission); err != nil {
			return err
		}

		updated = permission
		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionPermUpdated,
			EntityType: audit.EntityPermission,
			EntityID:   &permission.ID,
			Before:     before,
			After:      permission,
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

/*
DeletePermission removes a permission that is not attached to any role.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - id: int64

Returns:
  - error: apperr.NotFound, Conflict when still attached, audit or storage failures
*/
func (service *Service) DeletePermission(ctx context.Context, actor audit.Actor, id int64) error {
	return service.transactions.WithinTx(ctx, func(context context.Context) error {
		permission, err := service.permissionRepository.FindByID(context, id)
		if err != nil {
			return err
		}

		attached, err := service.permissionRepository.CountAttachedRoles(context, id)
		if err != nil {
			return err
		}
		if attached > 0 {
			return apperr.Conflict("Permission is still attached to roles")
		}

		if err := service.permissionRepository.Delete(context, id); err != nil {
			return err
		}

		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionPermDeleted,
			EntityType: audit.EntityPermission,
			EntityID:   &id,
			Before:     permission,
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
	})
}

// # Resolution

/*
ResolvePermissionCodes returns the effective permission codes for a user.

Description: Union of active permission codes across all held roles,
computed from the live graph on every call. This is the method behind the
authorization middleware.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - []string: Sorted distinct codes
  - error: Retrieval failures
*/
func (service *Service) ResolvePermissionCodes(context context.Context, userID int64) ([]string, error) {
	return service.roleRepository.ResolvePermissionCodes(context, userID)
}

/*
RolesForUser returns the roles held by a user.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - []Role: Held roles
  - error: Retrieval failures
*/
func (service *Service) RolesForUser(context context.Context, userID int64) ([]Role, error) {
	return service.roleRepository.RolesForUser(context, userID)
}
