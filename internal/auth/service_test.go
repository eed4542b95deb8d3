// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package auth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/internal/audit"
	"github.com/identra/identra/internal/auth"
	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/sec"
	"github.com/identra/identra/internal/rbac"
	"github.com/identra/identra/internal/user"
)

// # Test Doubles

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *recordingAuditor) Record(_ context.Context, event audit.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *recordingAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var actions []string
	for _, event := range a.events {
		actions = append(actions, event.Action)
	}
	return actions
}

// fakeSessionRepository is an in-memory session registry. It is safe for
// concurrent use so rotation races can be exercised directly.
type fakeSessionRepository struct {
	mu       sync.Mutex
	sessions map[int64]*auth.Session
	nextID   int64
}

func newFakeSessionRepository() *fakeSessionRepository {
	return &fakeSessionRepository{sessions: map[int64]*auth.Session{}}
}

func (f *fakeSessionRepository) Create(_ context.Context, session *auth.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	session.ID = f.nextID
	session.CreatedAt = time.Now()
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeSessionRepository) FindByID(_ context.Context, id int64) (*auth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	found, ok := f.sessions[id]
	if !ok {
		return nil, apperr.NotFound("Session")
	}
	copied := *found
	return &copied, nil
}

func (f *fakeSessionRepository) FindActiveByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, found := range f.sessions {
		if found.TokenHash == tokenHash && found.IsActive(time.Now()) {
			copied := *found
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Session")
}

func (f *fakeSessionRepository) RevokeIfActive(_ context.Context, sessionID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	found, ok := f.sessions[sessionID]
	if !ok || !found.IsActive(time.Now()) {
		return false, nil
	}
	now := time.Now()
	found.IsRevoked = true
	found.RevokedAt = &now
	return true, nil
}

func (f *fakeSessionRepository) RevokeAllForUser(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var revoked int64
	now := time.Now()
	for _, found := range f.sessions {
		if found.UserID == userID && found.IsActive(now) {
			found.IsRevoked = true
			found.RevokedAt = &now
			revoked++
		}
	}
	return revoked, nil
}

func (f *fakeSessionRepository) ListActiveForUser(_ context.Context, userID int64) ([]auth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sessions []auth.Session
	now := time.Now()
	for _, found := range f.sessions {
		if found.UserID == userID && found.IsActive(now) {
			sessions = append(sessions, *found)
		}
	}
	return sessions, nil
}

func (f *fakeSessionRepository) RevokeExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var swept int64
	now := time.Now()
	for _, found := range f.sessions {
		if !found.IsRevoked && !now.Before(found.ExpiresAt) {
			found.IsRevoked = true
			found.RevokedAt = &now
			swept++
		}
	}
	return swept, nil
}

// fakeRevocationCache records tombstones in memory.
type fakeRevocationCache struct {
	mu      sync.Mutex
	revoked map[int64]bool
}

func newFakeRevocationCache() *fakeRevocationCache {
	return &fakeRevocationCache{revoked: map[int64]bool{}}
}

func (f *fakeRevocationCache) MarkRevoked(_ context.Context, sessionID int64, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[sessionID] = true
	return nil
}

func (f *fakeRevocationCache) IsRevoked(_ context.Context, sessionID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[sessionID], nil
}

// fakeUserDirectory serves a fixed account set.
type fakeUserDirectory struct {
	users map[int64]*user.User
}

func (f *fakeUserDirectory) FindByUsername(_ context.Context, username string) (*user.User, error) {
	for _, found := range f.users {
		if found.Username == username {
			copied := *found
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeUserDirectory) FindByID(_ context.Context, id int64) (*user.User, error) {
	found, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	copied := *found
	return &copied, nil
}

func (f *fakeUserDirectory) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	if found, ok := f.users[id]; ok {
		found.LastLoginAt = &at
	}
	return nil
}

// fakeGrantSource returns fixed roles and permission codes.
type fakeGrantSource struct {
	roles       []rbac.Role
	permissions []string
}

func (f *fakeGrantSource) RolesForUser(_ context.Context, _ int64) ([]rbac.Role, error) {
	return f.roles, nil
}

func (f *fakeGrantSource) ResolvePermissionCodes(_ context.Context, _ int64) ([]string, error) {
	return f.permissions, nil
}

// fakeTokenProvider mints traceable fake tokens instead of signed JWTs.
type fakeTokenProvider struct {
	mu     sync.Mutex
	minted map[string]sec.AccessTokenInput
	nextID int
}

func newFakeTokenProvider() *fakeTokenProvider {
	return &fakeTokenProvider{minted: map[string]sec.AccessTokenInput{}}
}

func (f *fakeTokenProvider) GenerateAccessToken(input sec.AccessTokenInput, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	token := fmt.Sprintf("access-token-%d", f.nextID)
	f.minted[token] = input
	return token, nil
}

func (f *fakeTokenProvider) VerifyToken(tokenString string) (*sec.AuthClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	input, ok := f.minted[tokenString]
	if !ok {
		return nil, fmt.Errorf("unknown token")
	}
	return &sec.AuthClaims{
		UserID:      input.UserID,
		SessionID:   input.SessionID,
		Username:    input.Username,
		Roles:       input.Roles,
		Permissions: input.Permissions,
	}, nil
}

// # Harness

type harness struct {
	service  *auth.Service
	sessions *fakeSessionRepository
	users    *fakeUserDirectory
	cache    *fakeRevocationCache
	tokens   *fakeTokenProvider
	auditor  *recordingAuditor
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	hash, err := sec.HashPassword("correct-horse")
	require.NoError(t, err)

	sessions := newFakeSessionRepository()
	users := &fakeUserDirectory{users: map[int64]*user.User{
		1: {ID: 1, Username: "alice", Email: "alice@example.com", PasswordHash: hash, IsEnabled: true},
		2: {ID: 2, Username: "bob", Email: "bob@example.com", PasswordHash: hash, IsEnabled: false},
		3: {ID: 3, Username: "carol", Email: "carol@example.com", PasswordHash: hash, IsEnabled: true, IsLocked: true},
	}}
	cache := newFakeRevocationCache()
	tokens := newFakeTokenProvider()
	auditor := &recordingAuditor{}

	grants := &fakeGrantSource{
		roles:       []rbac.Role{{ID: 1, Name: "member"}},
		permissions: []string{"USER_READ"},
	}

	service := auth.NewService(
		sessions, users, grants, tokens, cache,
		passthroughTx{}, auditor,
		15*time.Minute, 24*time.Hour,
	)

	return &harness{
		service:  service,
		sessions: sessions,
		users:    users,
		cache:    cache,
		tokens:   tokens,
		auditor:  auditor,
	}
}

func (h *harness) login(t *testing.T) *auth.TokenPair {
	t.Helper()
	pair, err := h.service.Login(context.Background(), auth.LoginInput{
		Username: "alice",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return pair
}

// # Login

/*
TestService_Login verifies the full success path: session creation, claim
content, last-login stamp, and the audit entry.
*/
func TestService_Login(t *testing.T) {
	h := newHarness(t)

	pair, err := h.service.Login(context.Background(), auth.LoginInput{
		Username:   "alice",
		Password:   "correct-horse",
		DeviceName: "laptop",
		IPAddress:  "203.0.113.7",
	})

	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, 15*time.Minute, pair.AccessTokenExpiresIn)
	require.NotNil(t, pair.User)
	assert.Equal(t, []string{"member"}, pair.User.Roles)

	claims, err := h.service.ValidateToken(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, []string{"USER_READ"}, claims.Permissions)

	// The registry stores a digest, never the raw refresh token.
	session, err := h.sessions.FindByID(context.Background(), claims.SessionID)
	require.NoError(t, err)
	assert.Equal(t, sec.HashToken(pair.RefreshToken), session.TokenHash)
	assert.NotEqual(t, pair.RefreshToken, session.TokenHash)
	assert.Equal(t, "laptop", session.DeviceName)

	assert.NotNil(t, h.users.users[1].LastLoginAt)

	require.Len(t, h.auditor.events, 1)
	assert.Equal(t, audit.ActionUserLogin, h.auditor.events[0].Action)
	assert.Equal(t, audit.EntitySession, h.auditor.events[0].EntityType)
	require.NotNil(t, h.auditor.events[0].ActorID)
	assert.Equal(t, int64(1), *h.auditor.events[0].ActorID)
}

/*
TestService_Login_UniformFailure verifies that unknown accounts, wrong
passwords, disabled accounts, and locked accounts all fail with the exact
same error, and that each failure leaves a LOGIN_FAILED trace.
*/
func TestService_Login_UniformFailure(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "unknown user", username: "nobody", password: "correct-horse"},
		{name: "wrong password", username: "alice", password: "wrong"},
		{name: "disabled account", username: "bob", password: "correct-horse"},
		{name: "locked account", username: "carol", password: "correct-horse"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			h := newHarness(t)

			pair, err := h.service.Login(context.Background(), auth.LoginInput{
				Username: testCase.username,
				Password: testCase.password,
			})

			assert.Nil(t, pair)
			require.Error(t, err)
			assert.True(t, apperr.IsCode(err, "AUTHENTICATION_FAILED"))
			assert.Equal(t, []string{audit.ActionLoginFailed}, h.auditor.actions())
		})
	}
}

// # Rotation

/*
TestService_Refresh verifies rotation: the old session is revoked, a new one
is issued, and the old refresh token is dead afterwards.
*/
func TestService_Refresh(t *testing.T) {
	h := newHarness(t)
	pair := h.login(t)

	rotated, err := h.service.Refresh(context.Background(), auth.RefreshInput{
		RefreshToken: pair.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The old access token is rejected because its session is revoked.
	_, err = h.service.ValidateToken(context.Background(), pair.AccessToken)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "INVALID_TOKEN"))

	// The new pair is fully usable.
	_, err = h.service.ValidateToken(context.Background(), rotated.AccessToken)
	require.NoError(t, err)

	// Replaying the consumed refresh token fails.
	_, err = h.service.Refresh(context.Background(), auth.RefreshInput{
		RefreshToken: pair.RefreshToken,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "INVALID_TOKEN"))

	assert.Contains(t, h.auditor.actions(), audit.ActionTokenRefresh)
}

/*
TestService_Refresh_ConcurrentExactlyOnce verifies the rotation race: of N
concurrent refreshes presenting the same token, exactly one wins.
*/
func TestService_Refresh_ConcurrentExactlyOnce(t *testing.T) {
	h := newHarness(t)
	pair := h.login(t)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.service.Refresh(context.Background(), auth.RefreshInput{
				RefreshToken: pair.RefreshToken,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		if err == nil {
			won++
			continue
		}
		assert.True(t, apperr.IsCode(err, "INVALID_TOKEN"))
		lost++
	}

	assert.Equal(t, 1, won)
	assert.Equal(t, attempts-1, lost)
}

/*
TestService_Refresh_BlockedAccount verifies that a refresh for a since-
disabled account fails with the uniform token error, not an account hint.
*/
func TestService_Refresh_BlockedAccount(t *testing.T) {
	h := newHarness(t)
	pair := h.login(t)

	h.users.users[1].IsEnabled = false

	_, err := h.service.Refresh(context.Background(), auth.RefreshInput{
		RefreshToken: pair.RefreshToken,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "INVALID_TOKEN"))
}

// # Termination

/*
TestService_Logout verifies revocation plus idempotency: repeating the call
and presenting garbage are both successful no-ops.
*/
func TestService_Logout(t *testing.T) {
	h := newHarness(t)
	pair := h.login(t)

	require.NoError(t, h.service.Logout(context.Background(), pair.RefreshToken, auth.ClientMeta{}))

	_, err := h.service.ValidateToken(context.Background(), pair.AccessToken)
	require.Error(t, err)

	// Idempotent on repeat and on unknown tokens.
	require.NoError(t, h.service.Logout(context.Background(), pair.RefreshToken, auth.ClientMeta{}))
	require.NoError(t, h.service.Logout(context.Background(), "never-issued", auth.ClientMeta{}))

	// Exactly one revocation was audited.
	var logouts int
	for _, action := range h.auditor.actions() {
		if action == audit.ActionUserLogout {
			logouts++
		}
	}
	assert.Equal(t, 1, logouts)
}

/*
TestService_SessionLifecycle walks one account through the full flow:
login, token validation, permission inspection, logout, and the audit
trail the flow leaves behind.
*/
func TestService_SessionLifecycle(t *testing.T) {
	h := newHarness(t)
	pair := h.login(t)

	claims, err := h.service.ValidateToken(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Contains(t, claims.Permissions, "USER_READ")

	require.NoError(t, h.service.Logout(context.Background(), pair.RefreshToken, auth.ClientMeta{}))

	_, err = h.service.ValidateToken(context.Background(), pair.AccessToken)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "INVALID_TOKEN"))

	var logoutEvents []audit.Event
	for _, event := range h.auditor.events {
		if event.Action == audit.ActionUserLogout {
			logoutEvents = append(logoutEvents, event)
		}
	}
	require.Len(t, logoutEvents, 1)
	require.NotNil(t, logoutEvents[0].ActorID)
	assert.Equal(t, int64(1), *logoutEvents[0].ActorID)
}

/*
TestService_LogoutAll verifies that every active session of the user is
revoked and counted, and that each one gets a cache tombstone.
*/
func TestService_LogoutAll(t *testing.T) {
	h := newHarness(t)

	first := h.login(t)
	second := h.login(t)
	third := h.login(t)

	revoked, err := h.service.LogoutAll(context.Background(), 1, auth.ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), revoked)

	for _, pair := range []*auth.TokenPair{first, second, third} {
		_, err := h.service.ValidateToken(context.Background(), pair.AccessToken)
		assert.Error(t, err)
	}

	assert.Len(t, h.cache.revoked, 3)
	assert.Contains(t, h.auditor.actions(), audit.ActionUserLogoutAll)
}

// # Validation

/*
TestService_ValidateToken_CacheTombstone verifies that a cache tombstone
denies the token even when the registry row still reads active.
*/
func TestService_ValidateToken_CacheTombstone(t *testing.T) {
	h := newHarness(t)
	pair := h.login(t)

	claims, err := h.service.ValidateToken(context.Background(), pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, h.cache.MarkRevoked(context.Background(), claims.SessionID, time.Hour))

	_, err = h.service.ValidateToken(context.Background(), pair.AccessToken)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "INVALID_TOKEN"))
}

/*
TestService_ValidateToken_ExpiredSession verifies that an expired session
denies the access token even if the JWT itself is still valid.
*/
func TestService_ValidateToken_ExpiredSession(t *testing.T) {
	h := newHarness(t)
	pair := h.login(t)

	claims, err := h.service.ValidateToken(context.Background(), pair.AccessToken)
	require.NoError(t, err)

	h.sessions.mu.Lock()
	h.sessions.sessions[claims.SessionID].ExpiresAt = time.Now().Add(-time.Minute)
	h.sessions.mu.Unlock()

	_, err = h.service.ValidateToken(context.Background(), pair.AccessToken)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "INVALID_TOKEN"))
}

func TestService_ValidateToken_Garbage(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.ValidateToken(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "INVALID_TOKEN"))
}

// # Session Lifecycle

/*
TestSession_StatusAt verifies the status precedence: revocation wins over
expiry, and a session is expired at its exact deadline.
*/
func TestSession_StatusAt(t *testing.T) {
	now := time.Now()
	revokedAt := now.Add(-time.Minute)

	tests := []struct {
		name    string
		session auth.Session
		want    auth.Status
	}{
		{
			name:    "active",
			session: auth.Session{ExpiresAt: now.Add(time.Hour)},
			want:    auth.StatusActive,
		},
		{
			name:    "revoked",
			session: auth.Session{IsRevoked: true, RevokedAt: &revokedAt, ExpiresAt: now.Add(time.Hour)},
			want:    auth.StatusRevoked,
		},
		{
			name:    "expired",
			session: auth.Session{ExpiresAt: now.Add(-time.Hour)},
			want:    auth.StatusExpired,
		},
		{
			name:    "expired at the exact deadline",
			session: auth.Session{ExpiresAt: now},
			want:    auth.StatusExpired,
		},
		{
			name:    "revoked and expired reads revoked",
			session: auth.Session{IsRevoked: true, RevokedAt: &revokedAt, ExpiresAt: now.Add(-time.Hour)},
			want:    auth.StatusRevoked,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.want, testCase.session.StatusAt(now))
		})
	}
}
