// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package user_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/internal/audit"
	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/sec"
	"github.com/identra/identra/internal/rbac"
	"github.com/identra/identra/internal/user"
	"github.com/identra/identra/pkg/pagination"
)

// # Test Doubles

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingAuditor struct {
	events []audit.Event
}

func (a *recordingAuditor) Record(_ context.Context, event audit.Event) error {
	a.events = append(a.events, event)
	return nil
}

// fakeRevoker counts session revocations per user.
type fakeRevoker struct {
	revoked map[int64]int
}

func (f *fakeRevoker) RevokeAllForUser(_ context.Context, userID int64) (int64, error) {
	if f.revoked == nil {
		f.revoked = map[int64]int{}
	}
	f.revoked[userID]++
	return 1, nil
}

// fakeRoleDirectory serves a fixed role catalog.
type fakeRoleDirectory struct {
	defaultRole *rbac.Role
	roles       map[int64]*rbac.Role
}

func (f *fakeRoleDirectory) GetDefaultRoles(_ context.Context) ([]rbac.Role, error) {
	if f.defaultRole == nil {
		return []rbac.Role{}, nil
	}
	return []rbac.Role{*f.defaultRole}, nil
}

func (f *fakeRoleDirectory) GetRole(_ context.Context, id int64) (*rbac.Role, error) {
	role, ok := f.roles[id]
	if !ok {
		return nil, apperr.NotFound("Role")
	}
	return role, nil
}

func (f *fakeRoleDirectory) RolesForUser(_ context.Context, _ int64) ([]rbac.Role, error) {
	return nil, nil
}

// fakeRepository is an in-memory user store.
type fakeRepository struct {
	users     map[int64]*user.User
	userRoles map[int64][]int64
	nextID    int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{users: map[int64]*user.User{}, userRoles: map[int64][]int64{}}
}

func (f *fakeRepository) Create(_ context.Context, created *user.User) error {
	for _, existing := range f.users {
		if strings.EqualFold(existing.Username, created.Username) || strings.EqualFold(existing.Email, created.Email) {
			return apperr.Conflict("User already exists")
		}
	}
	f.nextID++
	created.ID = f.nextID
	copied := *created
	f.users[created.ID] = &copied
	return nil
}

func (f *fakeRepository) FindByID(_ context.Context, id int64) (*user.User, error) {
	found, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	copied := *found
	return &copied, nil
}

func (f *fakeRepository) FindByUsername(_ context.Context, username string) (*user.User, error) {
	for _, found := range f.users {
		if strings.EqualFold(found.Username, username) {
			copied := *found
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeRepository) FindByEmail(_ context.Context, email string) (*user.User, error) {
	for _, found := range f.users {
		if strings.EqualFold(found.Email, email) {
			copied := *found
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	for _, found := range f.users {
		if strings.EqualFold(found.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, found := range f.users {
		if strings.EqualFold(found.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) List(_ context.Context, _ pagination.Params) ([]user.User, int64, error) {
	var users []user.User
	for _, found := range f.users {
		users = append(users, *found)
	}
	return users, int64(len(users)), nil
}

func (f *fakeRepository) ListByType(_ context.Context, userType string, _ pagination.Params) ([]user.User, int64, error) {
	var users []user.User
	for _, found := range f.users {
		if found.UserType == userType {
			users = append(users, *found)
		}
	}
	return users, int64(len(users)), nil
}

func (f *fakeRepository) Update(_ context.Context, updated *user.User) error {
	stored, ok := f.users[updated.ID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.Email = updated.Email
	stored.FirstName = updated.FirstName
	stored.LastName = updated.LastName
	stored.UserType = updated.UserType
	return nil
}

func (f *fakeRepository) UpdatePassword(_ context.Context, userID int64, newHash string) error {
	stored, ok := f.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.PasswordHash = newHash
	return nil
}

func (f *fakeRepository) SetEnabled(_ context.Context, id int64, enabled bool) error {
	stored, ok := f.users[id]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.IsEnabled = enabled
	return nil
}

func (f *fakeRepository) SetLocked(_ context.Context, id int64, locked bool) error {
	stored, ok := f.users[id]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.IsLocked = locked
	return nil
}

func (f *fakeRepository) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	if stored, ok := f.users[id]; ok {
		stored.LastLoginAt = &at
	}
	return nil
}

func (f *fakeRepository) ReplaceRoles(_ context.Context, userID int64, roleIDs []int64) error {
	f.userRoles[userID] = roleIDs
	return nil
}

func (f *fakeRepository) AssignRole(_ context.Context, userID, roleID int64) error {
	f.userRoles[userID] = append(f.userRoles[userID], roleID)
	return nil
}

func (f *fakeRepository) SoftDelete(_ context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return apperr.NotFound("User")
	}
	delete(f.users, id)
	return nil
}

type harness struct {
	repo    *fakeRepository
	roles   *fakeRoleDirectory
	revoker *fakeRevoker
	auditor *recordingAuditor
	service *user.Service
}

func newHarness(defaultRole *rbac.Role) *harness {
	h := &harness{
		repo:    newFakeRepository(),
		roles:   &fakeRoleDirectory{defaultRole: defaultRole, roles: map[int64]*rbac.Role{}},
		revoker: &fakeRevoker{},
		auditor: &recordingAuditor{},
	}
	h.service = user.NewService(h.repo, h.roles, h.revoker, passthroughTx{}, h.auditor)
	return h
}

var testActor = func() audit.Actor {
	id := int64(1)
	return audit.Actor{ID: &id, IPAddress: "192.0.2.10"}
}()

// # Tests

/*
TestService_Create verifies password hashing, default role assignment and
the paired audit entry.
*/
func TestService_Create(t *testing.T) {
	h := newHarness(&rbac.Role{ID: 3, Name: "member", IsDefault: true})

	created, err := h.service.Create(context.Background(), testActor, user.CreateInput{
		Username: "avasquez",
		Email:    "avasquez@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	assert.True(t, created.IsEnabled)
	assert.False(t, created.IsLocked)
	assert.Equal(t, user.UserTypeEmployee, created.UserType)
	assert.NotEqual(t, "correct horse battery", created.PasswordHash)
	assert.True(t, sec.CheckPasswordHash("correct horse battery", created.PasswordHash))
	assert.Equal(t, []string{"member"}, created.Roles)
	assert.Equal(t, []int64{3}, h.repo.userRoles[created.ID])

	require.Len(t, h.auditor.events, 1)
	assert.Equal(t, audit.ActionUserCreated, h.auditor.events[0].Action)
}

/*
TestService_Create_NoDefaultRole verifies that a deployment without a
configured default role still provisions accounts.
*/
func TestService_Create_NoDefaultRole(t *testing.T) {
	h := newHarness(nil)

	created, err := h.service.Create(context.Background(), testActor, user.CreateInput{
		Username: "nobody",
		Email:    "nobody@example.com",
		Password: "some password",
	})
	require.NoError(t, err)
	assert.Empty(t, created.Roles)
	assert.Empty(t, h.repo.userRoles[created.ID])
}

/*
TestService_Create_DuplicateIdentity verifies the Conflict mapping.
*/
func TestService_Create_DuplicateIdentity(t *testing.T) {
	h := newHarness(nil)

	_, err := h.service.Create(context.Background(), testActor, user.CreateInput{
		Username: "dup", Email: "dup@example.com", Password: "password-one",
	})
	require.NoError(t, err)

	_, err = h.service.Create(context.Background(), testActor, user.CreateInput{
		Username: "dup", Email: "other@example.com", Password: "password-two",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "CONFLICT"))
}

/*
TestService_Create_DuplicateIdentity_IgnoresCase verifies that identity
uniqueness ignores letter case, matching the LOWER() unique indexes.
*/
func TestService_Create_DuplicateIdentity_IgnoresCase(t *testing.T) {
	h := newHarness(nil)

	_, err := h.service.Create(context.Background(), testActor, user.CreateInput{
		Username: "Casey", Email: "Casey@Example.com", Password: "password-one",
	})
	require.NoError(t, err)

	_, err = h.service.Create(context.Background(), testActor, user.CreateInput{
		Username: "casey", Email: "other@example.com", Password: "password-two",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "CONFLICT"))

	_, err = h.service.Create(context.Background(), testActor, user.CreateInput{
		Username: "different", Email: "CASEY@example.com", Password: "password-three",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "CONFLICT"))
}

/*
TestService_AutoRegister verifies the generated username, the temporary
password, the default role and the audit entry.
*/
func TestService_AutoRegister(t *testing.T) {
	h := newHarness(&rbac.Role{ID: 3, Name: "member", IsDefault: true})

	registration, err := h.service.AutoRegister(context.Background(), testActor, user.AutoRegisterInput{
		Email:     "Jane.Doe+docs@example.com",
		UserType:  "client",
		FirstName: "Jane",
		LastName:  "Doe",
	})
	require.NoError(t, err)

	created := registration.User
	assert.Equal(t, "janedoedocs", created.Username)
	assert.Equal(t, user.UserTypeClient, created.UserType)
	assert.True(t, created.IsEnabled)
	assert.Equal(t, []string{"member"}, created.Roles)
	assert.Equal(t, []int64{3}, h.repo.userRoles[created.ID])

	require.NotEmpty(t, registration.TemporaryPassword)
	assert.True(t, sec.CheckPasswordHash(registration.TemporaryPassword, created.PasswordHash))

	require.Len(t, h.auditor.events, 1)
	assert.Equal(t, audit.ActionUserAutoRegistered, h.auditor.events[0].Action)
	require.NotNil(t, h.auditor.events[0].ActorID)
	assert.Equal(t, int64(1), *h.auditor.events[0].ActorID)
}

/*
TestService_AutoRegister_UsernameCollision verifies the numeric suffix when
the derived username is already taken.
*/
func TestService_AutoRegister_UsernameCollision(t *testing.T) {
	h := newHarness(nil)

	first, err := h.service.AutoRegister(context.Background(), testActor, user.AutoRegisterInput{
		Email: "pat@example.com", UserType: "EMPLOYEE",
	})
	require.NoError(t, err)
	assert.Equal(t, "pat", first.User.Username)

	second, err := h.service.AutoRegister(context.Background(), testActor, user.AutoRegisterInput{
		Email: "pat@another.example", UserType: "EMPLOYEE",
	})
	require.NoError(t, err)
	assert.Equal(t, "pat1", second.User.Username)
}

/*
TestService_AutoRegister_RequestedRoles verifies that explicitly requested
roles win over the default role.
*/
func TestService_AutoRegister_RequestedRoles(t *testing.T) {
	h := newHarness(&rbac.Role{ID: 3, Name: "member", IsDefault: true})
	h.roles.roles[7] = &rbac.Role{ID: 7, Name: "auditor"}

	registration, err := h.service.AutoRegister(context.Background(), testActor, user.AutoRegisterInput{
		Email:    "lee@example.com",
		UserType: "ADMIN",
		RoleIDs:  []int64{7},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"auditor"}, registration.User.Roles)
	assert.Equal(t, []int64{7}, h.repo.userRoles[registration.User.ID])
}

/*
TestService_AutoRegister_Rejections covers the duplicate email and the
unknown user type paths.
*/
func TestService_AutoRegister_Rejections(t *testing.T) {
	h := newHarness(nil)

	_, err := h.service.AutoRegister(context.Background(), testActor, user.AutoRegisterInput{
		Email: "taken@example.com", UserType: "CLIENT",
	})
	require.NoError(t, err)

	_, err = h.service.AutoRegister(context.Background(), testActor, user.AutoRegisterInput{
		Email: "Taken@Example.com", UserType: "CLIENT",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "CONFLICT"))

	_, err = h.service.AutoRegister(context.Background(), testActor, user.AutoRegisterInput{
		Email: "new@example.com", UserType: "WIZARD",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "VALIDATION_ERROR"))
}

/*
TestService_ListByType verifies the classification filter and the rejection
of unknown types.
*/
func TestService_ListByType(t *testing.T) {
	h := newHarness(nil)

	_, err := h.service.Create(context.Background(), testActor, user.CreateInput{
		Username: "staff", Email: "staff@example.com", Password: "some password",
	})
	require.NoError(t, err)

	_, err = h.service.Create(context.Background(), testActor, user.CreateInput{
		Username: "customer", Email: "customer@example.com", Password: "some password",
		UserType: "CLIENT",
	})
	require.NoError(t, err)

	clients, total, err := h.service.ListByType(context.Background(), "client", pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, clients, 1)
	assert.Equal(t, "customer", clients[0].Username)

	_, _, err = h.service.ListByType(context.Background(), "royalty", pagination.Params{Page: 1, Limit: 10})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "VALIDATION_ERROR"))
}

/*
TestService_SetEnabled verifies that disabling revokes sessions while
re-enabling does not.
*/
func TestService_SetEnabled(t *testing.T) {
	h := newHarness(nil)
	created, err := h.service.Create(context.Background(), testActor, user.CreateInput{
		Username: "flagged", Email: "flagged@example.com", Password: "some password",
	})
	require.NoError(t, err)

	require.NoError(t, h.service.SetEnabled(context.Background(), testActor, created.ID, false))
	assert.Equal(t, 1, h.revoker.revoked[created.ID])
	assert.False(t, h.repo.users[created.ID].IsEnabled)

	require.NoError(t, h.service.SetEnabled(context.Background(), testActor, created.ID, true))
	assert.Equal(t, 1, h.revoker.revoked[created.ID], "re-enabling must not revoke sessions")
	assert.True(t, h.repo.users[created.ID].IsEnabled)
}

/*
TestService_SetLocked verifies that locking revokes sessions while
unlocking does not.
*/
func TestService_SetLocked(t *testing.T) {
	h := newHarness(nil)
	created, err := h.service.Create(context.Background(), testActor, user.CreateInput{
		Username: "locked", Email: "locked@example.com", Password: "some password",
	})
	require.NoError(t, err)

	require.NoError(t, h.service.SetLocked(context.Background(), testActor, created.ID, true))
	assert.Equal(t, 1, h.revoker.revoked[created.ID])

	require.NoError(t, h.service.SetLocked(context.Background(), testActor, created.ID, false))
	assert.Equal(t, 1, h.revoker.revoked[created.ID], "unlocking must not revoke sessions")
}

/*
TestService_ChangePassword covers the wrong-current-password rejection and
the session sweep on success.
*/
func TestService_ChangePassword(t *testing.T) {
	h := newHarness(nil)
	created, err := h.service.Create(context.Background(), testActor, user.CreateInput{
		Username: "rotator", Email: "rotator@example.com", Password: "old password",
	})
	require.NoError(t, err)

	err = h.service.ChangePassword(context.Background(), testActor, created.ID, "wrong password", "new password!")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "AUTHENTICATION_FAILED"))
	assert.Zero(t, h.revoker.revoked[created.ID])

	require.NoError(t, h.service.ChangePassword(context.Background(), testActor, created.ID, "old password", "new password!"))
	assert.Equal(t, 1, h.revoker.revoked[created.ID])
	assert.True(t, sec.CheckPasswordHash("new password!", h.repo.users[created.ID].PasswordHash))
}

/*
TestService_AssignRoles verifies role validation and the atomic swap.
*/
func TestService_AssignRoles(t *testing.T) {
	h := newHarness(nil)
	h.roles.roles[10] = &rbac.Role{ID: 10, Name: "admin"}
	h.roles.roles[11] = &rbac.Role{ID: 11, Name: "auditor"}

	created, err := h.service.Create(context.Background(), testActor, user.CreateInput{
		Username: "assignee", Email: "assignee@example.com", Password: "some password",
	})
	require.NoError(t, err)

	// Unknown role rejects the whole request
	_, err = h.service.AssignRoles(context.Background(), testActor, created.ID, []int64{10, 999})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "NOT_FOUND"))

	updated, err := h.service.AssignRoles(context.Background(), testActor, created.ID, []int64{10, 11})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "auditor"}, updated.Roles)
	assert.Equal(t, []int64{10, 11}, h.repo.userRoles[created.ID])
}

/*
TestService_Delete verifies the soft delete revokes sessions and records
the prior state.
*/
func TestService_Delete(t *testing.T) {
	h := newHarness(nil)
	created, err := h.service.Create(context.Background(), testActor, user.CreateInput{
		Username: "leaver", Email: "leaver@example.com", Password: "some password",
	})
	require.NoError(t, err)

	require.NoError(t, h.service.Delete(context.Background(), testActor, created.ID))
	assert.Equal(t, 1, h.revoker.revoked[created.ID])

	_, err = h.service.Get(context.Background(), created.ID)
	assert.True(t, apperr.IsCode(err, "NOT_FOUND"))

	last := h.auditor.events[len(h.auditor.events)-1]
	assert.Equal(t, audit.ActionUserDeleted, last.Action)
	assert.NotNil(t, last.Before)
}

/*
TestUser_CanAuthenticate covers the flag matrix.
*/
func TestUser_CanAuthenticate(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		locked  bool
		want    bool
	}{
		{"enabled_unlocked", true, false, true},
		{"disabled", false, false, false},
		{"locked", true, true, false},
		{"disabled_and_locked", false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := &user.User{IsEnabled: tt.enabled, IsLocked: tt.locked}
			assert.Equal(t, tt.want, account.CanAuthenticate())
		})
	}
}
