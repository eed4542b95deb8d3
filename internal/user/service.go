// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/identra/identra/internal/audit"
	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/sec"
	"github.com/identra/identra/internal/rbac"
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

// RoleDirectory is the slice of the rbac service that account
// administration needs.
type RoleDirectory interface {
	GetDefaultRoles(context context.Context) ([]rbac.Role, error)
	GetRole(context context.Context, id int64) (*rbac.Role, error)
	RolesForUser(context context.Context, userID int64) ([]rbac.Role, error)
}

// Service orchestrates audited account administration.
//
// # Review Process
//
// Mutations that affect authentication (enable, lock, password, delete) also
// revoke the account's sessions inside the same transaction. Changes to that
// pairing must be reviewed by the security team.
type Service struct {
	repository   Repository
	roles        RoleDirectory
	sessions     SessionRevoker
	transactions TxRunner
	auditor      Auditor
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	repository Repository,
	roles RoleDirectory,
	sessions SessionRevoker,
	transactions TxRunner,
	auditor Auditor,
) *Service {
	return &Service{
		repository:   repository,
		roles:        roles,
		sessions:     sessions,
		transactions: transactions,
		auditor:      auditor,
	}
}

// # Account Creation

// CreateInput holds the data required to enroll a new account.
type CreateInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	UserType  string
}

/*
Create validates, hashes and persists a brand new account.

Description: The account starts enabled and unlocked, receives the default
role when one is configured, and the creation is audited. All three writes
commit atomically.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - input: CreateInput

Returns:
  - *User: Created entity
  - error: Conflict on duplicate identity, audit or storage failures
*/
func (service *Service) Create(ctx context.Context, actor audit.Actor, input CreateInput) (*User, error) {
	userType := strings.ToUpper(input.UserType)
	if userType == "" {
		userType = UserTypeEmployee
	}
	if !ValidUserType(userType) {
		return nil, apperr.ValidationError("Invalid user type: " + input.UserType)
	}

	// Check both identities up front for a precise conflict message. The
	// unique indexes remain the arbiter for concurrent provisioning.
	if taken, err := service.repository.ExistsByUsername(ctx, input.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, apperr.Conflict("Username already exists")
	}
	if taken, err := service.repository.ExistsByEmail(ctx, input.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, apperr.Conflict("Email already exists")
	}

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during provisioning bursts.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user_service_hash_failed: %w", err)
	}

	created := &User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		UserType:     userType,
		IsEnabled:    true,
		IsLocked:     false,
	}

	err = service.transactions.WithinTx(ctx, func(context context.Context) error {
		if err := service.repository.Create(context, created); err != nil {
			return err
		}

		// Apply the default roles when any are configured. An empty set is
		// a valid deployment state, not an error.
		defaultRoles, err := service.roles.GetDefaultRoles(context)
		if err != nil {
			return err
		}
		for _, role := range defaultRoles {
			if err := service.repository.AssignRole(context, created.ID, role.ID); err != nil {
				return err
			}
			created.Roles = append(created.Roles, role.Name)
		}

		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionUserCreated,
			EntityType: audit.EntityUser,
			EntityID:   &created.ID,
			After:      created,
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// # Auto Provisioning

// AutoRegisterInput holds the data for provisioning an account on behalf of
// another service, without a caller-chosen username or password.
type AutoRegisterInput struct {
	Email     string
	UserType  string
	FirstName string
	LastName  string
	RoleIDs   []int64
}

// AutoRegistration carries the provisioned account and its one-time
// temporary password. The plain text exists only in this value; the store
// keeps the hash.
type AutoRegistration struct {
	User              *User
	TemporaryPassword string
}

/*
AutoRegister provisions an account with a generated username and a
temporary password.

Description: The username derives from the email's local part and receives
a numeric suffix until it is unique. Requested roles are assigned as given;
without any, the default roles apply. The temporary password is returned
exactly once and the holder is expected to rotate it on first login. The
account, its roles and the audit entry commit atomically.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - input: AutoRegisterInput

Returns:
  - *AutoRegistration: Created account plus its temporary password
  - error: ValidationError on an unknown type, Conflict on a duplicate email,
    NotFound on an unknown role, audit or storage failures
*/
func (service *Service) AutoRegister(ctx context.Context, actor audit.Actor, input AutoRegisterInput) (*AutoRegistration, error) {
	userType := strings.ToUpper(input.UserType)
	if !ValidUserType(userType) {
		return nil, apperr.ValidationError("Invalid user type: " + input.UserType)
	}

	if taken, err := service.repository.ExistsByEmail(ctx, input.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, apperr.Conflict("Email already exists")
	}

	username, err := service.uniqueUsername(ctx, usernameFromEmail(input.Email))
	if err != nil {
		return nil, err
	}

	temporaryPassword, err := sec.GenerateSecureToken(9)
	if err != nil {
		return nil, fmt.Errorf("user_service_temp_password_failed: %w", err)
	}

	hashedPassword, err := sec.HashPassword(temporaryPassword)
	if err != nil {
		return nil, fmt.Errorf("user_service_hash_failed: %w", err)
	}

	created := &User{
		Username:     username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		UserType:     userType,
		IsEnabled:    true,
		IsLocked:     false,
	}

	err = service.transactions.WithinTx(ctx, func(context context.Context) error {
		if err := service.repository.Create(context, created); err != nil {
			return err
		}

		assigned := input.RoleIDs
		if len(assigned) > 0 {
			for _, roleID := range assigned {
				role, err := service.roles.GetRole(context, roleID)
				if err != nil {
					return err
				}
				if err := service.repository.AssignRole(context, created.ID, role.ID); err != nil {
					return err
				}
				created.Roles = append(created.Roles, role.Name)
			}
		} else {
			defaultRoles, err := service.roles.GetDefaultRoles(context)
			if err != nil {
				return err
			}
			for _, role := range defaultRoles {
				if err := service.repository.AssignRole(context, created.ID, role.ID); err != nil {
					return err
				}
				created.Roles = append(created.Roles, role.Name)
			}
		}

		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionUserAutoRegistered,
			EntityType: audit.EntityUser,
			EntityID:   &created.ID,
			After:      created,
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
	})
	if err != nil {
		return nil, err
	}

	return &AutoRegistration{User: created, TemporaryPassword: temporaryPassword}, nil
}

// usernameFromEmail derives a username candidate from the email's local
// part: non-alphanumerics dropped, lowercased, padded to three characters
// and capped at 45 so a collision suffix still fits the column.
func usernameFromEmail(email string) string {
	localPart, _, _ := strings.Cut(email, "@")

	var builder strings.Builder
	for _, r := range localPart {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			builder.WriteRune(r + ('a' - 'A'))
		}
	}

	username := builder.String()
	if len(username) < 3 {
		username += "user"
	}
	if len(username) > 45 {
		username = username[:45]
	}
	return username
}

// uniqueUsername appends an incrementing suffix until the candidate is
// free. The unique index remains the arbiter under concurrency; this only
// picks a candidate that was free when checked. Past 9999 attempts it
// switches to a random suffix rather than scanning further.
func (service *Service) uniqueUsername(context context.Context, base string) (string, error) {
	candidate := base
	for counter := 1; ; counter++ {
		taken, err := service.repository.ExistsByUsername(context, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		if counter > 9999 {
			suffix, err := sec.GenerateSecureToken(3)
			if err != nil {
				return "", fmt.Errorf("user_service_username_suffix_failed: %w", err)
			}
			return base + strings.ToLower(suffix), nil
		}
		candidate = fmt.Sprintf("%s%d", base, counter)
	}
}

// # Account Reads

/*
Get returns an account together with its role names.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - *User: Hydrated entity including role names
  - error: apperr.NotFound or retrieval failures
*/
func (service *Service) Get(context context.Context, id int64) (*User, error) {
	found, err := service.repository.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	roles, err := service.roles.RolesForUser(context, id)
	if err != nil {
		return nil, fmt.Errorf("user_service_load_roles_failed: %w", err)
	}
	for _, role := range roles {
		found.Roles = append(found.Roles, role.Name)
	}

	return found, nil
}

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
func (service *Service) List(context context.Context, params pagination.Params) ([]User, int64, error) {
	return service.repository.List(context, params)
}

/*
ListByType returns a page of accounts of one classification.

Parameters:
  - context: context.Context
  - userType: string
  - params: pagination.Params

Returns:
  - []User: Page of accounts
  - int64: Total count of accounts with that type
  - error: ValidationError on an unknown type, or retrieval failures
*/
func (service *Service) ListByType(context context.Context, userType string, params pagination.Params) ([]User, int64, error) {
	normalized := strings.ToUpper(userType)
	if !ValidUserType(normalized) {
		return nil, 0, apperr.ValidationError("Invalid user type: " + userType)
	}
	return service.repository.ListByType(context, normalized, params)
}

// # Account Administration

// UpdateInput holds the mutable profile fields of an account. An empty
// UserType leaves the stored classification unchanged.
type UpdateInput struct {
	Email     string
	FirstName string
	LastName  string
	UserType  string
}

/*
Update applies new profile fields to an existing account.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - id: int64
  - input: UpdateInput

Returns:
  - *User: Updated entity
  - error: apperr.NotFound, Conflict on duplicate email, audit or storage failures
*/
func (service *Service) Update(ctx context.Context, actor audit.Actor, id int64, input UpdateInput) (*User, error) {
	if input.UserType != "" && !ValidUserType(strings.ToUpper(input.UserType)) {
		return nil, apperr.ValidationError("Invalid user type: " + input.UserType)
	}

	var updated *User

	err := service.transactions.WithinTx(ctx, func(context context.Context) error {
		found, err := service.repository.FindByID(context, id)
		if err != nil {
			return err
		}
		before := *found

		found.Email = input.Email
		found.FirstName = input.FirstName
		found.LastName = input.LastName
		if input.UserType != "" {
			found.UserType = strings.ToUpper(input.UserType)
		}

		if err := service.repository.Update(context, found); err != nil {
			return err
		}

		updated = found
		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionUserUpdated,
			EntityType: audit.EntityUser,
			EntityID:   &found.ID,
			Before:     before,
			After:      found,
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
SetEnabled flips the administrative enabled flag.

Description: Disabling an account also revokes every active session inside
the same transaction, so the account cannot ride out the change on an
existing token.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - id: int64
  - enabled: bool

Returns:
  - error: apperr.NotFound, audit or storage failures
*/
func (service *Service) SetEnabled(ctx context.Context, actor audit.Actor, id int64, enabled bool) error {
	return service.setFlag(ctx, actor, id, flagChange{
		field:          "is_enabled",
		value:          enabled,
		previous:       func(user *User) bool { return user.IsEnabled },
		apply:          func(context context.Context) error { return service.repository.SetEnabled(context, id, enabled) },
		revokeSessions: !enabled,
	})
}

/*
SetLocked flips the security lock flag.

Description: Locking an account revokes every active session inside the
same transaction.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - id: int64
  - locked: bool

Returns:
  - error: apperr.NotFound, audit or storage failures
*/
func (service *Service) SetLocked(ctx context.Context, actor audit.Actor, id int64, locked bool) error {
	return service.setFlag(ctx, actor, id, flagChange{
		field:          "is_locked",
		value:          locked,
		previous:       func(user *User) bool { return user.IsLocked },
		apply:          func(context context.Context) error { return service.repository.SetLocked(context, id, locked) },
		revokeSessions: locked,
	})
}

// flagChange describes one boolean account flag mutation.
type flagChange struct {
	field          string
	value          bool
	previous       func(user *User) bool
	apply          func(context context.Context) error
	revokeSessions bool
}

// setFlag applies a boolean account flag, audits the change, and revokes
// sessions when the change blocks authentication.
func (service *Service) setFlag(ctx context.Context, actor audit.Actor, id int64, change flagChange) error {
	return service.transactions.WithinTx(ctx, func(context context.Context) error {
		before, err := service.repository.FindByID(context, id)
		if err != nil {
			return err
		}

		if err := change.apply(context); err != nil {
			return err
		}

		if change.revokeSessions {
			if _, err := service.sessions.RevokeAllForUser(context, id); err != nil {
				return fmt.Errorf("user_service_revoke_sessions_failed: %w", err)
			}
		}

		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionUserUpdated,
			EntityType: audit.EntityUser,
			EntityID:   &id,
			Before:     map[string]bool{change.field: change.previous(before)},
			After:      map[string]bool{change.field: change.value},
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
	})
}

/*
AssignRoles replaces the account's role set.

Description: Every role ID is verified before the swap; the replacement and
its audit entry commit atomically.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - id: int64
  - roleIDs: []int64

Returns:
  - *User: Account with its new role names
  - error: apperr.NotFound for unknown user or role, audit or storage failures
*/
func (service *Service) AssignRoles(ctx context.Context, actor audit.Actor, id int64, roleIDs []int64) (*User, error) {
	var updated *User

	err := service.transactions.WithinTx(ctx, func(context context.Context) error {
		found, err := service.repository.FindByID(context, id)
		if err != nil {
			return err
		}

		roleNames := make([]string, 0, len(roleIDs))
		for _, roleID := range roleIDs {
			role, err := service.roles.GetRole(context, roleID)
			if err != nil {
				return err
			}
			roleNames = append(roleNames, role.Name)
		}

		if err := service.repository.ReplaceRoles(context, id, roleIDs); err != nil {
			return err
		}

		found.Roles = roleNames
		updated = found

		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionRolesAssigned,
			EntityType: audit.EntityUser,
			EntityID:   &id,
			After:      map[string][]string{"roles": roleNames},
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
ChangePassword rotates an account's credentials.

Description: Verifies the current password, stores the new hash, revokes
every active session and audits the change, all atomically. The caller must
re-authenticate afterwards.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - id: int64
  - currentPassword: string
  - newPassword: string

Returns:
  - error: AuthenticationFailed on a wrong current password, audit or storage failures
*/
func (service *Service) ChangePassword(ctx context.Context, actor audit.Actor, id int64, currentPassword, newPassword string) error {
	return service.transactions.WithinTx(ctx, func(context context.Context) error {
		found, err := service.repository.FindByID(context, id)
		if err != nil {
			return err
		}

		if !sec.CheckPasswordHash(currentPassword, found.PasswordHash) {
			return apperr.AuthenticationFailed()
		}

		hashedPassword, err := sec.HashPassword(newPassword)
		if err != nil {
			return fmt.Errorf("user_service_change_password_hash_failed: %w", err)
		}

		if err := service.repository.UpdatePassword(context, id, hashedPassword); err != nil {
			return err
		}

		if _, err := service.sessions.RevokeAllForUser(context, id); err != nil {
			return fmt.Errorf("user_service_revoke_sessions_failed: %w", err)
		}

		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionUserUpdated,
			EntityType: audit.EntityUser,
			EntityID:   &id,
			After:      map[string]bool{"password_changed": true},
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
	})
}

/*
Delete soft-deletes an account.

Description: The row survives for the audit trail, but the account vanishes
from every read path and all of its sessions are revoked atomically.

Parameters:
  - ctx: context.Context
  - actor: audit.Actor
  - id: int64

Returns:
  - error: apperr.NotFound, audit or storage failures
*/
func (service *Service) Delete(ctx context.Context, actor audit.Actor, id int64) error {
	return service.transactions.WithinTx(ctx, func(context context.Context) error {
		found, err := service.repository.FindByID(context, id)
		if err != nil {
			return err
		}

		if err := service.repository.SoftDelete(context, id); err != nil {
			return err
		}

		if _, err := service.sessions.RevokeAllForUser(context, id); err != nil {
			return fmt.Errorf("user_service_revoke_sessions_failed: %w", err)
		}

		return service.auditor.Record(context, audit.Event{
			ActorID:    actor.ID,
			Action:     audit.ActionUserDeleted,
			EntityType: audit.EntityUser,
			EntityID:   &id,
			Before:     found,
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
	})
}
