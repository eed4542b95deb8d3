// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/identra/identra/internal/audit"
	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/sec"
	"github.com/identra/identra/internal/user"
)

// # Service

// Service implements the authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to credential checks,
// rotation, or the pairing of session writes with audit writes must be
// reviewed by the security team.
type Service struct {
	sessions        SessionRepository
	users           UserDirectory
	grants          GrantSource
	tokens          TokenProvider
	cache           RevocationCache
	transactions    TxRunner
	auditor         Auditor
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	sessions SessionRepository,
	users UserDirectory,
	grants GrantSource,
	tokens TokenProvider,
	cache RevocationCache,
	transactions TxRunner,
	auditor Auditor,
	accessTokenTTL time.Duration,
	refreshTokenTTL time.Duration,
) *Service {
	return &Service{
		sessions:        sessions,
		users:           users,
		grants:          grants,
		tokens:          tokens,
		cache:           cache,
		transactions:    transactions,
		auditor:         auditor,
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
	}
}

// # Authentication Flow

// LoginInput defines credentials and client metadata for a login attempt.
type LoginInput struct {
	Username   string
	Password   string
	DeviceName string
	IPAddress  string
	UserAgent  string
}

// TokenPair represents a successfully established session.
type TokenPair struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresIn  time.Duration
	RefreshTokenExpiresAt time.Time
	User                  *user.User
}

/*
Login validates credentials and establishes a new session.

Description: Unknown accounts, wrong passwords, and disabled or locked
accounts all fail with the same uniform error, and each failure leaves a
LOGIN_FAILED audit trace. On success the session row, the last-login stamp
and the USER_LOGIN audit entry commit atomically.

Parameters:
  - ctx: context.Context
  - input: LoginInput

Returns:
  - *TokenPair: Signed access token plus opaque refresh token
  - error: apperr.AuthenticationFailed or internal failures
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*TokenPair, error) {

	// ── 1. Resolve and check the account ──
	account, err := service.users.FindByUsername(ctx, input.Username)
	if err != nil {
		service.recordLoginFailure(ctx, input, "unknown_user")
		return nil, apperr.AuthenticationFailed()
	}

	// Constant-time comparison inside bcrypt prevents timing attacks
	if !sec.CheckPasswordHash(input.Password, account.PasswordHash) {
		service.recordLoginFailure(ctx, input, "bad_credentials")
		return nil, apperr.AuthenticationFailed()
	}

	// Disabled and locked accounts are rejected identically
	if !account.CanAuthenticate() {
		service.recordLoginFailure(ctx, input, "account_blocked")
		return nil, apperr.AuthenticationFailed()
	}

	// ── 2. Resolve grants for the token claims ──
	roleNames, permissions, err := service.resolveGrants(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	// ── 3. Mint the refresh token and its session ──
	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	session := &Session{
		UserID:     account.ID,
		TokenHash:  sec.HashToken(refreshToken),
		DeviceName: input.DeviceName,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
		ExpiresAt:  time.Now().Add(service.refreshTokenTTL),
	}

	// ── 4. Commit session, login stamp, and audit entry atomically ──
	var accessToken string
	err = service.transactions.WithinTx(ctx, func(context context.Context) error {
		if err := service.sessions.Create(context, session); err != nil {
			return err
		}

		if err := service.users.UpdateLastLogin(context, account.ID, time.Now()); err != nil {
			return err
		}

		accessToken, err = service.tokens.GenerateAccessToken(sec.AccessTokenInput{
			UserID:      account.ID,
			SessionID:   session.ID,
			Username:    account.Username,
			Roles:       roleNames,
			Permissions: permissions,
		}, service.accessTokenTTL)
		if err != nil {
			return fmt.Errorf("auth_service_token_generation_failed: %w", err)
		}

		return service.auditor.Record(context, audit.Event{
			ActorID:    &account.ID,
			Action:     audit.ActionUserLogin,
			EntityType: audit.EntitySession,
			EntityID:   &session.ID,
			IPAddress:  input.IPAddress,
			UserAgent:  input.UserAgent,
		})
	})
	if err != nil {
		return nil, err
	}

	account.Roles = roleNames
	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresIn:  service.accessTokenTTL,
		RefreshTokenExpiresAt: session.ExpiresAt,
		User:                  account,
	}, nil
}

// recordLoginFailure appends a LOGIN_FAILED trace. Best effort: the login is
// already failing and the uniform error must not depend on audit storage.
func (service *Service) recordLoginFailure(context context.Context, input LoginInput, reason string) {
	_ = service.auditor.Record(context, audit.Event{
		Action:     audit.ActionLoginFailed,
		EntityType: audit.EntityUser,
		After:      map[string]string{"username": input.Username, "reason": reason},
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
	})
}

// resolveGrants loads role names and effective permission codes for claims.
func (service *Service) resolveGrants(context context.Context, userID int64) ([]string, []string, error) {
	roles, err := service.grants.RolesForUser(context, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("auth_service_resolve_roles_failed: %w", err)
	}
	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, role.Name)
	}

	permissions, err := service.grants.ResolvePermissionCodes(context, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("auth_service_resolve_permissions_failed: %w", err)
	}

	return roleNames, permissions, nil
}

// # Session Rotation

// RefreshInput carries the presented refresh token and client metadata.
type RefreshInput struct {
	RefreshToken string
	DeviceName   string
	IPAddress    string
	UserAgent    string
}

/*
Refresh implements refresh token rotation.

Description: The presented token's session is revoked and a fresh pair is
issued in one transaction. The conditional revocation is the race arbiter:
of N concurrent refreshes presenting the same token, exactly one succeeds
and the rest fail with an invalid-token error, which also defeats replay
of a stolen token.

Parameters:
  - ctx: context.Context
  - input: RefreshInput

Returns:
  - *TokenPair: Rotated credentials
  - error: apperr.InvalidToken or internal failures
*/
func (service *Service) Refresh(ctx context.Context, input RefreshInput) (*TokenPair, error) {

	// ── 1. Resolve the presented token to an active session ──
	tokenHash := sec.HashToken(input.RefreshToken)
	current, err := service.sessions.FindActiveByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, apperr.InvalidToken("Refresh token is invalid or expired")
	}

	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	replacement := &Session{
		UserID:     current.UserID,
		TokenHash:  sec.HashToken(refreshToken),
		DeviceName: input.DeviceName,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
		ExpiresAt:  time.Now().Add(service.refreshTokenTTL),
	}

	// ── 2. Rotate atomically: revoke old, create new, audit ──
	var accessToken string
	err = service.transactions.WithinTx(ctx, func(context context.Context) error {
		won, err := service.sessions.RevokeIfActive(context, current.ID)
		if err != nil {
			return err
		}
		if !won {
			// A concurrent refresh or logout got here first.
			return apperr.InvalidToken("Refresh token is invalid or expired")
		}

		account, err := service.users.FindByID(context, current.UserID)
		if err != nil || !account.CanAuthenticate() {
			return apperr.InvalidToken("Refresh token is invalid or expired")
		}

		roleNames, permissions, err := service.resolveGrants(context, account.ID)
		if err != nil {
			return err
		}

		if err := service.sessions.Create(context, replacement); err != nil {
			return err
		}

		accessToken, err = service.tokens.GenerateAccessToken(sec.AccessTokenInput{
			UserID:      account.ID,
			SessionID:   replacement.ID,
			Username:    account.Username,
			Roles:       roleNames,
			Permissions: permissions,
		}, service.accessTokenTTL)
		if err != nil {
			return fmt.Errorf("auth_service_token_generation_failed: %w", err)
		}

		return service.auditor.Record(context, audit.Event{
			ActorID:    &account.ID,
			Action:     audit.ActionTokenRefresh,
			EntityType: audit.EntitySession,
			EntityID:   &replacement.ID,
			Before:     map[string]int64{"session_id": current.ID},
			After:      map[string]int64{"session_id": replacement.ID},
			IPAddress:  input.IPAddress,
			UserAgent:  input.UserAgent,
		})
	})
	if err != nil {
		return nil, err
	}

	// Best-effort tombstone so validation rejects the old session without a
	// registry round trip.
	_ = service.cache.MarkRevoked(ctx, current.ID, time.Until(current.ExpiresAt))

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresIn:  service.accessTokenTTL,
		RefreshTokenExpiresAt: replacement.ExpiresAt,
	}, nil
}

// # Session Termination

// ClientMeta carries request metadata for audited terminations.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

/*
Logout revokes the session behind the presented refresh token.

Description: Idempotent: an unknown, expired or already-revoked token is a
successful logout. A performed revocation is audited atomically.

Parameters:
  - ctx: context.Context
  - refreshToken: string
  - meta: ClientMeta

Returns:
  - error: Audit or storage failures
*/
func (service *Service) Logout(ctx context.Context, refreshToken string, meta ClientMeta) error {
	tokenHash := sec.HashToken(refreshToken)

	session, err := service.sessions.FindActiveByTokenHash(ctx, tokenHash)
	if err != nil {
		// Already gone; logout is idempotent.
		return nil
	}

	err = service.transactions.WithinTx(ctx, func(context context.Context) error {
		won, err := service.sessions.RevokeIfActive(context, session.ID)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}

		return service.auditor.Record(context, audit.Event{
			ActorID:    &session.UserID,
			Action:     audit.ActionUserLogout,
			EntityType: audit.EntitySession,
			EntityID:   &session.ID,
			IPAddress:  meta.IPAddress,
			UserAgent:  meta.UserAgent,
		})
	})
	if err != nil {
		return err
	}

	_ = service.cache.MarkRevoked(ctx, session.ID, time.Until(session.ExpiresAt))
	return nil
}

/*
LogoutAll revokes every active session of the user.

Description: Used for "sign out everywhere". The batch revocation and its
single audit entry commit atomically; tombstones for the affected sessions
are written best-effort afterwards.

Parameters:
  - ctx: context.Context
  - userID: int64
  - meta: ClientMeta

Returns:
  - int64: Number of sessions revoked
  - error: Audit or storage failures
*/
func (service *Service) LogoutAll(ctx context.Context, userID int64, meta ClientMeta) (int64, error) {
	var revoked int64
	var affected []Session

	err := service.transactions.WithinTx(ctx, func(context context.Context) error {
		var err error
		affected, err = service.sessions.ListActiveForUser(context, userID)
		if err != nil {
			return err
		}

		revoked, err = service.sessions.RevokeAllForUser(context, userID)
		if err != nil {
			return err
		}

		return service.auditor.Record(context, audit.Event{
			ActorID:    &userID,
			Action:     audit.ActionUserLogoutAll,
			EntityType: audit.EntityUser,
			EntityID:   &userID,
			After:      map[string]int64{"revoked_sessions": revoked},
			IPAddress:  meta.IPAddress,
			UserAgent:  meta.UserAgent,
		})
	})
	if err != nil {
		return 0, err
	}

	for _, session := range affected {
		_ = service.cache.MarkRevoked(ctx, session.ID, time.Until(session.ExpiresAt))
	}

	return revoked, nil
}

/*
RevokeAllForUser revokes every active session of the user without an audit
entry of its own.

Description: Hook for account administration, which records its own audit
entry for the triggering change (disable, lock, delete, password rotation)
in the same transaction.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - int64: Number of sessions revoked
  - error: Storage failures
*/
func (service *Service) RevokeAllForUser(context context.Context, userID int64) (int64, error) {
	affected, err := service.sessions.ListActiveForUser(context, userID)
	if err != nil {
		return 0, err
	}

	revoked, err := service.sessions.RevokeAllForUser(context, userID)
	if err != nil {
		return 0, err
	}

	for _, session := range affected {
		_ = service.cache.MarkRevoked(context, session.ID, time.Until(session.ExpiresAt))
	}

	return revoked, nil
}

// # Validation

/*
ValidateToken checks an access token and the session behind it.

Description: Beyond signature and expiry, the session must still be active
in the registry, so a logout or rotation invalidates outstanding access
tokens immediately. The Redis tombstone is consulted first as a fast-path
denial; any cache failure falls through to Postgres.

Parameters:
  - context: context.Context
  - tokenString: string

Returns:
  - *sec.AuthClaims: Verified claims
  - error: apperr.InvalidToken for any verification failure
*/
func (service *Service) ValidateToken(context context.Context, tokenString string) (*sec.AuthClaims, error) {
	claims, err := service.tokens.VerifyToken(tokenString)
	if err != nil {
		return nil, apperr.InvalidToken("Token is invalid or expired")
	}

	// Advisory fast path; errors fall through to the registry.
	if revoked, err := service.cache.IsRevoked(context, claims.SessionID); err == nil && revoked {
		return nil, apperr.InvalidToken("Session is no longer active")
	}

	session, err := service.sessions.FindByID(context, claims.SessionID)
	if err != nil {
		return nil, apperr.InvalidToken("Session is no longer active")
	}
	if !session.IsActive(time.Now()) {
		return nil, apperr.InvalidToken("Session is no longer active")
	}

	return claims, nil
}

/*
ListSessions returns the user's active sessions, newest first.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - []Session: Active sessions
  - error: Retrieval failures
*/
func (service *Service) ListSessions(context context.Context, userID int64) ([]Session, error) {
	return service.sessions.ListActiveForUser(context, userID)
}
