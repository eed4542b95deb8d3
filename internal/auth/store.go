// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package auth

import (
	"context"
	"time"

	"github.com/identra/identra/internal/audit"
	"github.com/identra/identra/internal/platform/sec"
	"github.com/identra/identra/internal/rbac"
	"github.com/identra/identra/internal/user"
)

// # Session Data Access

// SessionRepository defines the data access contract for the session registry.
type SessionRepository interface {

	/*
		Create persists a new session for an authenticated login.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, session *Session) error

	/*
		FindByID returns the session with the given ID regardless of state.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - *Session: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByID(context context.Context, id int64) (*Session, error)

	/*
		FindActiveByTokenHash returns the unrevoked, unexpired session
		matching the given token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *Session: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindActiveByTokenHash(context context.Context, tokenHash string) (*Session, error)

	/*
		RevokeIfActive atomically revokes the session if it is still active.
		The boolean reports whether this call performed the revocation;
		concurrent callers racing on the same session see true exactly once.

		Parameters:
		  - context: context.Context
		  - sessionID: int64

		Returns:
		  - bool: Whether this call won the revocation
		  - error: Persistence failures
	*/
	RevokeIfActive(context context.Context, sessionID int64) (bool, error)

	/*
		RevokeAllForUser revokes every active session of the user.

		Parameters:
		  - context: context.Context
		  - userID: int64

		Returns:
		  - int64: Number of sessions revoked
		  - error: Persistence failures
	*/
	RevokeAllForUser(context context.Context, userID int64) (int64, error)

	/*
		ListActiveForUser returns the user's active sessions, newest first.

		Parameters:
		  - context: context.Context
		  - userID: int64

		Returns:
		  - []Session: Active sessions
		  - error: Retrieval failures
	*/
	ListActiveForUser(context context.Context, userID int64) ([]Session, error)

	/*
		RevokeExpired marks every expired-but-unrevoked session as revoked.

		Parameters:
		  - context: context.Context

		Returns:
		  - int64: Number of sessions retired
		  - error: Persistence failures
	*/
	RevokeExpired(context context.Context) (int64, error)
}

// RevocationCache is an advisory fast-path in front of the session registry.
// A cache miss or cache error always falls through to Postgres; the cache can
// only ever short-circuit a denial, never grant access.
type RevocationCache interface {

	/*
		MarkRevoked stores a revocation tombstone for the session.

		Parameters:
		  - context: context.Context
		  - sessionID: int64
		  - ttl: time.Duration (remaining session lifetime)

		Returns:
		  - error: Storage failures; callers treat them as best-effort
	*/
	MarkRevoked(context context.Context, sessionID int64, ttl time.Duration) error

	/*
		IsRevoked reports whether a revocation tombstone exists.

		Parameters:
		  - context: context.Context
		  - sessionID: int64

		Returns:
		  - bool: Tombstone present
		  - error: Connectivity failures
	*/
	IsRevoked(context context.Context, sessionID int64) (bool, error)
}

// # Collaborator Contracts

// UserDirectory is the slice of the user store that authentication needs.
// [user.PostgresRepository] is the production implementation.
type UserDirectory interface {
	FindByUsername(context context.Context, username string) (*user.User, error)
	FindByID(context context.Context, id int64) (*user.User, error)
	UpdateLastLogin(context context.Context, id int64, at time.Time) error
}

// GrantSource resolves roles and permissions for token claims.
// [rbac.Service] is the production implementation.
type GrantSource interface {
	RolesForUser(context context.Context, userID int64) ([]rbac.Role, error)
	ResolvePermissionCodes(context context.Context, userID int64) ([]string, error)
}

// TokenProvider defines the contract for minting and checking access tokens.
// [sec.TokenService] is the production implementation.
type TokenProvider interface {
	GenerateAccessToken(input sec.AccessTokenInput, timeToLive time.Duration) (string, error)
	VerifyToken(tokenString string) (*sec.AuthClaims, error)
}

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
