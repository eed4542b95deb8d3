// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package rbac_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/internal/audit"
	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/rbac"
	"github.com/identra/identra/pkg/pagination"
)

// # Test Doubles

// passthroughTx runs the closure without a real transaction.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// recordingAuditor captures audit events for assertions.
type recordingAuditor struct {
	events []audit.Event
}

func (a *recordingAuditor) Record(_ context.Context, event audit.Event) error {
	a.events = append(a.events, event)
	return nil
}

// fakeRoleRepository is an in-memory RoleRepository.
type fakeRoleRepository struct {
	roles         map[int64]*rbac.Role
	edges         map[int64]map[int64]bool // roleID -> permissionID set
	userRoles     map[int64][]int64        // userID -> roleIDs
	nextID        int64
	resolvedCodes []string
}

func newFakeRoleRepository() *fakeRoleRepository {
	return &fakeRoleRepository{
		roles:     map[int64]*rbac.Role{},
		edges:     map[int64]map[int64]bool{},
		userRoles: map[int64][]int64{},
	}
}

func (f *fakeRoleRepository) Create(_ context.Context, role *rbac.Role) error {
	for _, existing := range f.roles {
		if existing.Name == role.Name {
			return apperr.Conflict("Role already exists")
		}
	}
	f.nextID++
	role.ID = f.nextID
	copied := *role
	f.roles[role.ID] = &copied
	return nil
}

func (f *fakeRoleRepository) FindByID(_ context.Context, id int64) (*rbac.Role, error) {
	role, ok := f.roles[id]
	if !ok {
		return nil, apperr.NotFound("Role")
	}
	copied := *role
	return &copied, nil
}

func (f *fakeRoleRepository) FindByName(_ context.Context, name string) (*rbac.Role, error) {
	for _, role := range f.roles {
		if role.Name == name {
			copied := *role
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Role")
}

func (f *fakeRoleRepository) List(_ context.Context, _ pagination.Params) ([]rbac.Role, int64, error) {
	var roles []rbac.Role
	for _, role := range f.roles {
		roles = append(roles, *role)
	}
	return roles, int64(len(roles)), nil
}

func (f *fakeRoleRepository) Update(_ context.Context, role *rbac.Role) error {
	stored, ok := f.roles[role.ID]
	if !ok {
		return apperr.NotFound("Role")
	}
	stored.Name = role.Name
	stored.Description = role.Description
	return nil
}

func (f *fakeRoleRepository) Delete(_ context.Context, id int64) error {
	if _, ok := f.roles[id]; !ok {
		return apperr.NotFound("Role")
	}
	delete(f.roles, id)
	delete(f.edges, id)
	return nil
}

func (f *fakeRoleRepository) SetDefault(_ context.Context, id int64) error {
	if _, ok := f.roles[id]; !ok {
		return apperr.NotFound("Role")
	}
	for roleID, role := range f.roles {
		role.IsDefault = roleID == id
	}
	return nil
}

func (f *fakeRoleRepository) FindDefault(_ context.Context) (*rbac.Role, error) {
	for _, role := range f.roles {
		if role.IsDefault {
			copied := *role
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Default role")
}

func (f *fakeRoleRepository) AddPermission(_ context.Context, roleID, permissionID int64) error {
	if f.edges[roleID] == nil {
		f.edges[roleID] = map[int64]bool{}
	}
	f.edges[roleID][permissionID] = true
	return nil
}

func (f *fakeRoleRepository) RemovePermission(_ context.Context, roleID, permissionID int64) error {
	if !f.edges[roleID][permissionID] {
		return apperr.NotFound("Role permission")
	}
	delete(f.edges[roleID], permissionID)
	return nil
}

func (f *fakeRoleRepository) PermissionsForRole(_ context.Context, _ int64) ([]rbac.Permission, error) {
	return nil, nil
}

func (f *fakeRoleRepository) RolesForUser(_ context.Context, userID int64) ([]rbac.Role, error) {
	var roles []rbac.Role
	for _, roleID := range f.userRoles[userID] {
		if role, ok := f.roles[roleID]; ok {
			roles = append(roles, *role)
		}
	}
	return roles, nil
}

func (f *fakeRoleRepository) CountAssignedUsers(_ context.Context, roleID int64) (int64, error) {
	var count int64
	for _, roleIDs := range f.userRoles {
		for _, id := range roleIDs {
			if id == roleID {
				count++
			}
		}
	}
	return count, nil
}

func (f *fakeRoleRepository) ResolvePermissionCodes(_ context.Context, _ int64) ([]string, error) {
	return f.resolvedCodes, nil
}

// fakePermissionRepository is an in-memory PermissionRepository.
type fakePermissionRepository struct {
	permissions map[int64]*rbac.Permission
	attached    map[int64]int64 // permissionID -> role count
	nextID      int64
}

func newFakePermissionRepository() *fakePermissionRepository {
	return &fakePermissionRepository{
		permissions: map[int64]*rbac.Permission{},
		attached:    map[int64]int64{},
	}
}

func (f *fakePermissionRepository) Create(_ context.Context, permission *rbac.Permission) error {
	for _, existing := range f.permissions {
		if existing.Code == permission.Code {
			return apperr.Conflict("Permission already exists")
		}
	}
	f.nextID++
	permission.ID = f.nextID
	copied := *permission
	f.permissions[permission.ID] = &copied
	return nil
}

func (f *fakePermissionRepository) FindByID(_ context.Context, id int64) (*rbac.Permission, error) {
	permission, ok := f.permissions[id]
	if !ok {
		return nil, apperr.NotFound("Permission")
	}
	copied := *permission
	return &copied, nil
}

func (f *fakePermissionRepository) FindByCode(_ context.Context, code string) (*rbac.Permission, error) {
	for _, permission := range f.permissions {
		if permission.Code == code {
			copied := *permission
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Permission")
}

func (f *fakePermissionRepository) List(_ context.Context, filter rbac.PermissionFilter, _ pagination.Params) ([]rbac.Permission, int64, error) {
	var permissions []rbac.Permission
	for _, permission := range f.permissions {
		if filter.Category != "" && permission.Category != filter.Category {
			continue
		}
		if filter.Service != "" && permission.Service != filter.Service {
			continue
		}
		permissions = append(permissions, *permission)
	}
	return permissions, int64(len(permissions)), nil
}

func (f *fakePermissionRepository) Update(_ context.Context, permission *rbac.Permission) error {
	stored, ok := f.permissions[permission.ID]
	if !ok {
		return apperr.NotFound("Permission")
	}
	stored.Name = permission.Name
	stored.Description = permission.Description
	stored.Category = permission.Category
	stored.Service = permission.Service
	stored.IsActive = permission.IsActive
	return nil
}

func (f *fakePermissionRepository) Delete(_ context.Context, id int64) error {
	if _, ok := f.permissions[id]; !ok {
		return apperr.NotFound("Permission")
	}
	delete(f.permissions, id)
	return nil
}

func (f *fakePermissionRepository) CountAttachedRoles(_ context.Context, permissionID int64) (int64, error) {
	return f.attached[permissionID], nil
}

func newService(roles *fakeRoleRepository, permissions *fakePermissionRepository, auditor *recordingAuditor) *rbac.Service {
	return rbac.NewService(roles, permissions, passthroughTx{}, auditor)
}

var testActor = func() audit.Actor {
	id := int64(99)
	return audit.Actor{ID: &id, IPAddress: "198.51.100.4"}
}()

// # Tests

/*
TestService_CreateRole verifies creation and its paired audit entry.
*/
func TestService_CreateRole(t *testing.T) {
	roles := newFakeRoleRepository()
	auditor := &recordingAuditor{}
	service := newService(roles, newFakePermissionRepository(), auditor)

	role, err := service.CreateRole(context.Background(), testActor, rbac.RoleInput{Name: "auditor", Description: "Read-only audit access"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), role.ID)

	require.Len(t, auditor.events, 1)
	assert.Equal(t, audit.ActionRoleCreated, auditor.events[0].Action)
	assert.Equal(t, audit.EntityRole, auditor.events[0].EntityType)
	require.NotNil(t, auditor.events[0].ActorID)
	assert.Equal(t, int64(99), *auditor.events[0].ActorID)
}

/*
TestService_CreateRole_DuplicateName verifies the Conflict mapping.
*/
func TestService_CreateRole_DuplicateName(t *testing.T) {
	roles := newFakeRoleRepository()
	service := newService(roles, newFakePermissionRepository(), &recordingAuditor{})

	_, err := service.CreateRole(context.Background(), testActor, rbac.RoleInput{Name: "admin"})
	require.NoError(t, err)

	_, err = service.CreateRole(context.Background(), testActor, rbac.RoleInput{Name: "admin"})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "CONFLICT"))
}

/*
TestService_DeleteRole_Guards verifies that assigned and default roles
refuse deletion.
*/
func TestService_DeleteRole_Guards(t *testing.T) {
	roles := newFakeRoleRepository()
	auditor := &recordingAuditor{}
	service := newService(roles, newFakePermissionRepository(), auditor)

	member, err := service.CreateRole(context.Background(), testActor, rbac.RoleInput{Name: "member"})
	require.NoError(t, err)
	admin, err := service.CreateRole(context.Background(), testActor, rbac.RoleInput{Name: "admin"})
	require.NoError(t, err)

	// Default role refuses deletion
	_, err = service.SetRoleAsDefault(context.Background(), testActor, member.ID)
	require.NoError(t, err)
	err = service.DeleteRole(context.Background(), testActor, member.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "CONFLICT"))

	// Assigned role refuses deletion
	roles.userRoles[5] = []int64{admin.ID}
	err = service.DeleteRole(context.Background(), testActor, admin.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "CONFLICT"))

	// Unassigned, non-default role deletes fine
	roles.userRoles = map[int64][]int64{}
	require.NoError(t, service.DeleteRole(context.Background(), testActor, admin.ID))
}

/*
TestService_SetRoleAsDefault verifies the flag moves atomically so exactly
one default role exists after the swap.
*/
func TestService_SetRoleAsDefault(t *testing.T) {
	roles := newFakeRoleRepository()
	auditor := &recordingAuditor{}
	service := newService(roles, newFakePermissionRepository(), auditor)

	first, err := service.CreateRole(context.Background(), testActor, rbac.RoleInput{Name: "member"})
	require.NoError(t, err)
	second, err := service.CreateRole(context.Background(), testActor, rbac.RoleInput{Name: "guest"})
	require.NoError(t, err)

	_, err = service.SetRoleAsDefault(context.Background(), testActor, first.ID)
	require.NoError(t, err)

	updated, err := service.SetRoleAsDefault(context.Background(), testActor, second.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)

	var defaults int
	for _, role := range roles.roles {
		if role.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)

	// The swap records the previous holder in the audit trail
	last := auditor.events[len(auditor.events)-1]
	assert.Equal(t, audit.ActionDefaultRoleSet, last.Action)
	assert.NotNil(t, last.Before)
}

/*
TestService_GetDefaultRoles verifies the list shape: empty with no default
configured, one entry after a flag is set.
*/
func TestService_GetDefaultRoles(t *testing.T) {
	service := newService(newFakeRoleRepository(), newFakePermissionRepository(), &recordingAuditor{})

	defaults, err := service.GetDefaultRoles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, defaults)

	role, err := service.CreateRole(context.Background(), testActor, rbac.RoleInput{Name: "member"})
	require.NoError(t, err)
	_, err = service.SetRoleAsDefault(context.Background(), testActor, role.ID)
	require.NoError(t, err)

	defaults, err = service.GetDefaultRoles(context.Background())
	require.NoError(t, err)
	require.Len(t, defaults, 1)
	assert.Equal(t, "member", defaults[0].Name)
}

/*
TestService_AddPermissionToRole_Idempotent verifies repeated attachment
succeeds without error.
*/
func TestService_AddPermissionToRole_Idempotent(t *testing.T) {
	roles := newFakeRoleRepository()
	permissions := newFakePermissionRepository()
	service := newService(roles, permissions, &recordingAuditor{})

	role, err := service.CreateRole(context.Background(), testActor, rbac.RoleInput{Name: "editor"})
	require.NoError(t, err)
	permission, err := service.CreatePermission(context.Background(), testActor, rbac.PermissionInput{Code: "DOC_WRITE"})
	require.NoError(t, err)

	require.NoError(t, service.AddPermissionToRole(context.Background(), testActor, role.ID, permission.ID))
	require.NoError(t, service.AddPermissionToRole(context.Background(), testActor, role.ID, permission.ID))

	assert.Len(t, roles.edges[role.ID], 1)
}

/*
TestService_AddPermissionToRole_UnknownEntities verifies NotFound for
missing role or permission.
*/
func TestService_AddPermissionToRole_UnknownEntities(t *testing.T) {
	service := newService(newFakeRoleRepository(), newFakePermissionRepository(), &recordingAuditor{})

	err := service.AddPermissionToRole(context.Background(), testActor, 1, 1)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "NOT_FOUND"))
}

/*
TestService_SetPermissionActive verifies deactivation is audited and a
no-op flip skips the audit write.
*/
func TestService_SetPermissionActive(t *testing.T) {
	permissions := newFakePermissionRepository()
	auditor := &recordingAuditor{}
	service := newService(newFakeRoleRepository(), permissions, auditor)

	permission, err := service.CreatePermission(context.Background(), testActor, rbac.PermissionInput{Code: "USER_READ"})
	require.NoError(t, err)
	require.True(t, permission.IsActive)
	created := len(auditor.events)

	updated, err := service.SetPermissionActive(context.Background(), testActor, permission.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Len(t, auditor.events, created+1)

	// Deactivating an already-inactive permission records nothing new
	_, err = service.SetPermissionActive(context.Background(), testActor, permission.ID, false)
	require.NoError(t, err)
	assert.Len(t, auditor.events, created+1)
}

/*
TestService_PermissionCatalog verifies category and service filtering and
that updates never touch the code.
*/
func TestService_PermissionCatalog(t *testing.T) {
	permissions := newFakePermissionRepository()
	service := newService(newFakeRoleRepository(), permissions, &recordingAuditor{})

	_, err := service.CreatePermission(context.Background(), testActor, rbac.PermissionInput{
		Code: "DOC_READ", Name: "Read documents", Category: "documents", Service: "archive",
	})
	require.NoError(t, err)
	created, err := service.CreatePermission(context.Background(), testActor, rbac.PermissionInput{
		Code: "DOC_WRITE", Name: "Write documents", Category: "documents", Service: "editor",
	})
	require.NoError(t, err)

	byCategory, total, err := service.ListPermissions(context.Background(), rbac.PermissionFilter{Category: "documents"}, pagination.Params{Limit: 10, Page: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, byCategory, 2)

	byService, total, err := service.ListPermissions(context.Background(), rbac.PermissionFilter{Service: "editor"}, pagination.Params{Limit: 10, Page: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, byService, 1)
	assert.Equal(t, "DOC_WRITE", byService[0].Code)

	updated, err := service.UpdatePermission(context.Background(), testActor, created.ID, rbac.PermissionInput{
		Name: "Author documents", Description: "Create and edit documents", Category: "authoring", Service: "editor",
	})
	require.NoError(t, err)
	assert.Equal(t, "DOC_WRITE", updated.Code)
	assert.Equal(t, "Author documents", updated.Name)
	assert.Equal(t, "authoring", updated.Category)
}

/*
TestService_DeletePermission_StillAttached verifies the Conflict guard.
*/
func TestService_DeletePermission_StillAttached(t *testing.T) {
	permissions := newFakePermissionRepository()
	service := newService(newFakeRoleRepository(), permissions, &recordingAuditor{})

	permission, err := service.CreatePermission(context.Background(), testActor, rbac.PermissionInput{Code: "USER_DELETE"})
	require.NoError(t, err)

	permissions.attached[permission.ID] = 2
	err = service.DeletePermission(context.Background(), testActor, permission.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "CONFLICT"))
}

/*
TestHasCode covers the pure membership helper.
*/
func TestHasCode(t *testing.T) {
	codes := []string{"USER_READ", "USER_WRITE"}

	assert.True(t, rbac.HasCode(codes, "USER_READ"))
	assert.False(t, rbac.HasCode(codes, "USER_DELETE"))
	assert.False(t, rbac.HasCode(nil, "USER_READ"))
}
