// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/database/schema"
	"github.com/identra/identra/internal/platform/postgres"
)

// # Session Repository

// PostgresSessionRepository implements the SessionRepository interface using pgx.
//
// All statements resolve their querier from the context, so calls made inside
// [postgres.TxManager.WithinTx] join the caller's transaction.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

var sessionColumns = strings.Join(schema.IdentitySession.Columns(), ", ")

func scanSession(row pgx.Row) (*Session, error) {
	session := &Session{}
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.DeviceName,
		&session.IPAddress,
		&session.UserAgent,
		&session.IsRevoked,
		&session.ExpiresAt,
		&session.RevokedAt,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

/*
Create persists a new session into the identity.session table.

Description: The session ID and creation timestamp are assigned by the
database and written back into the entity.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Storage failures
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s, %s`,
		schema.IdentitySession.Table,
		schema.IdentitySession.UserID, schema.IdentitySession.TokenHash,
		schema.IdentitySession.DeviceName, schema.IdentitySession.IPAddress,
		schema.IdentitySession.UserAgent, schema.IdentitySession.IsRevoked,
		schema.IdentitySession.ExpiresAt,
		schema.IdentitySession.ID, schema.IdentitySession.CreatedAt,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	err := querier.QueryRow(context, query,
		session.UserID,
		session.TokenHash,
		session.DeviceName,
		session.IPAddress,
		session.UserAgent,
		session.IsRevoked,
		session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt)

	if err != nil {
		return fmt.Errorf("postgres_session_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByID retrieves a session by its primary key, in any state.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - *Session: Hydrated entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresSessionRepository) FindByID(context context.Context, id int64) (*Session, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		sessionColumns, schema.IdentitySession.Table, schema.IdentitySession.ID)

	querier := postgres.QuerierFrom(context, repository.pool)

	session, err := scanSession(querier.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session")
		}
		return nil, fmt.Errorf("postgres_session_repo_find_by_id_failed: %w", err)
	}

	return session, nil
}

/*
FindActiveByTokenHash retrieves the active session matching a token hash.

Description: The expiry check lives in the query so a stale session is
indistinguishable from an absent one.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *Session: Hydrated entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresSessionRepository) FindActiveByTokenHash(context context.Context, tokenHash string) (*Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s = FALSE AND %s > NOW()`,
		sessionColumns, schema.IdentitySession.Table,
		schema.IdentitySession.TokenHash, schema.IdentitySession.IsRevoked,
		schema.IdentitySession.ExpiresAt,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	session, err := scanSession(querier.QueryRow(context, query, tokenHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session")
		}
		return nil, fmt.Errorf("postgres_session_repo_find_active_failed: %w", err)
	}

	return session, nil
}

/*
RevokeIfActive atomically revokes a session if it is still active.

Description: The conditional UPDATE is the arbiter for refresh rotation:
of N concurrent refreshes presenting the same token, exactly one call
observes RowsAffected == 1 and wins the rotation.

Parameters:
  - context: context.Context
  - sessionID: int64

Returns:
  - bool: Whether this call performed the revocation
  - error: Database errors
*/
func (repository *PostgresSessionRepository) RevokeIfActive(context context.Context, sessionID int64) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = TRUE, %s = NOW()
		WHERE %s = $1 AND %s = FALSE AND %s > NOW()`,
		schema.IdentitySession.Table,
		schema.IdentitySession.IsRevoked, schema.IdentitySession.RevokedAt,
		schema.IdentitySession.ID, schema.IdentitySession.IsRevoked,
		schema.IdentitySession.ExpiresAt,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	tag, err := querier.Exec(context, query, sessionID)
	if err != nil {
		return false, fmt.Errorf("postgres_session_repo_revoke_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

/*
RevokeAllForUser revokes every active session of a user.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - int64: Number of sessions revoked
  - error: Database errors
*/
func (repository *PostgresSessionRepository) RevokeAllForUser(context context.Context, userID int64) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = TRUE, %s = NOW()
		WHERE %s = $1 AND %s = FALSE`,
		schema.IdentitySession.Table,
		schema.IdentitySession.IsRevoked, schema.IdentitySession.RevokedAt,
		schema.IdentitySession.UserID, schema.IdentitySession.IsRevoked,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	tag, err := querier.Exec(context, query, userID)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_revoke_all_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}

/*
ListActiveForUser returns the user's active sessions, newest first.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - []Session: Active sessions
  - error: Database errors
*/
func (repository *PostgresSessionRepository) ListActiveForUser(context context.Context, userID int64) ([]Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s = FALSE AND %s > NOW()
		ORDER BY %s DESC`,
		sessionColumns, schema.IdentitySession.Table,
		schema.IdentitySession.UserID, schema.IdentitySession.IsRevoked,
		schema.IdentitySession.ExpiresAt,
		schema.IdentitySession.CreatedAt,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	rows, err := querier.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_session_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var session Session
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.TokenHash,
			&session.DeviceName,
			&session.IPAddress,
			&session.UserAgent,
			&session.IsRevoked,
			&session.ExpiresAt,
			&session.RevokedAt,
			&session.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_session_repo_scan_failed: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_session_repo_rows_failed: %w", err)
	}

	return sessions, nil
}

/*
RevokeExpired marks every expired-but-unrevoked session as revoked.

Description: Housekeeping run by the sweeper. Rows are kept, not deleted,
so the registry stays a complete history for the audit trail.

Parameters:
  - context: context.Context

Returns:
  - int64: Number of sessions retired
  - error: Database errors
*/
func (repository *PostgresSessionRepository) RevokeExpired(context context.Context) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = TRUE, %s = NOW()
		WHERE %s = FALSE AND %s <= NOW()`,
		schema.IdentitySession.Table,
		schema.IdentitySession.IsRevoked, schema.IdentitySession.RevokedAt,
		schema.IdentitySession.IsRevoked, schema.IdentitySession.ExpiresAt,
	)

	tag, err := repository.pool.Exec(context, query)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_revoke_expired_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}
