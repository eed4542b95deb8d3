// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/database/schema"
	"github.com/identra/identra/internal/platform/dberr"
	"github.com/identra/identra/internal/platform/postgres"
	"github.com/identra/identra/pkg/pagination"
)

// # User Repository

// PostgresRepository implements the Repository interface using pgx.
//
// All statements resolve their querier from the context, so calls made inside
// [postgres.TxManager.WithinTx] join the caller's transaction.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// userColumns is the hydration column list. DeletedAt is excluded: every
// read already filters on it and the entity does not expose it.
var userColumns = strings.Join([]string{
	schema.IdentityUser.ID, schema.IdentityUser.Username, schema.IdentityUser.Email,
	schema.IdentityUser.Password, schema.IdentityUser.FirstName, schema.IdentityUser.LastName,
	schema.IdentityUser.UserType,
	schema.IdentityUser.IsEnabled, schema.IdentityUser.IsLocked, schema.IdentityUser.LastLoginAt,
	schema.IdentityUser.CreatedAt, schema.IdentityUser.UpdatedAt,
}, ", ")

// scanUser hydrates a User from a single-row result.
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.UserType,
		&user.IsEnabled,
		&user.IsLocked,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// foldMatch builds a case-insensitive single-value predicate for a text
// identity column. It mirrors the LOWER() expression unique indexes, so
// lookups and uniqueness enforcement agree on what counts as the same
// username or email.
func foldMatch(column string) string {
	return fmt.Sprintf("LOWER(%s) = LOWER($1)", column)
}

// exactMatch builds an exact single-value predicate.
func exactMatch(column string) string {
	return fmt.Sprintf("%s = $1", column)
}

// findWhere retrieves a live account by a single-value predicate.
func (repository *PostgresRepository) findWhere(context context.Context, predicate string, value any, operation string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s AND %s IS NULL`,
		userColumns, schema.IdentityUser.Table, predicate, schema.IdentityUser.DeletedAt,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	user, err := scanUser(querier.QueryRow(context, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_%s_failed: %w", operation, err)
	}

	return user, nil
}

/*
Create persists a new account into the identity.user table.

Description: The account ID and timestamps are assigned by the database and
written back into the entity. Duplicate username or email maps to Conflict.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - error: apperr.Conflict or database errors
*/
func (repository *PostgresRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s, %s, %s`,
		schema.IdentityUser.Table,
		schema.IdentityUser.Username, schema.IdentityUser.Email, schema.IdentityUser.Password,
		schema.IdentityUser.FirstName, schema.IdentityUser.LastName, schema.IdentityUser.UserType,
		schema.IdentityUser.IsEnabled, schema.IdentityUser.IsLocked,
		schema.IdentityUser.ID, schema.IdentityUser.CreatedAt, schema.IdentityUser.UpdatedAt,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	err := querier.QueryRow(context, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.UserType,
		user.IsEnabled,
		user.IsLocked,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return dberr.Wrap(err, "user")
	}

	return nil
}

/*
FindByID retrieves an account by its primary key.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - *User: Hydrated entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) FindByID(context context.Context, id int64) (*User, error) {
	return repository.findWhere(context, exactMatch(schema.IdentityUser.ID), id, "find_by_id")
}

/*
FindByUsername retrieves an account by its unique username. Matching is
case-insensitive, in line with the unique index on LOWER(username).

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *User: Hydrated entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) FindByUsername(context context.Context, username string) (*User, error) {
	return repository.findWhere(context, foldMatch(schema.IdentityUser.Username), username, "find_by_username")
}

/*
FindByEmail retrieves an account by its unique email address. Matching is
case-insensitive, in line with the unique index on LOWER(email).

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) FindByEmail(context context.Context, email string) (*User, error) {
	return repository.findWhere(context, foldMatch(schema.IdentityUser.Email), email, "find_by_email")
}

// existsWhere runs an EXISTS check against live accounts.
func (repository *PostgresRepository) existsWhere(context context.Context, predicate string, value any, operation string) (bool, error) {
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s AND %s IS NULL)",
		schema.IdentityUser.Table, predicate, schema.IdentityUser.DeletedAt)

	querier := postgres.QuerierFrom(context, repository.pool)

	var exists bool
	if err := querier.QueryRow(context, query, value).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres_user_repo_%s_failed: %w", operation, err)
	}

	return exists, nil
}

/*
ExistsByUsername reports whether a live account holds the username,
ignoring case.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - bool: Whether the username is taken
  - error: Database errors
*/
func (repository *PostgresRepository) ExistsByUsername(context context.Context, username string) (bool, error) {
	return repository.existsWhere(context, foldMatch(schema.IdentityUser.Username), username, "exists_by_username")
}

/*
ExistsByEmail reports whether a live account holds the email, ignoring
case.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - bool: Whether the email is taken
  - error: Database errors
*/
func (repository *PostgresRepository) ExistsByEmail(context context.Context, email string) (bool, error) {
	return repository.existsWhere(context, foldMatch(schema.IdentityUser.Email), email, "exists_by_email")
}

/*
List returns a page of accounts ordered by username.

Parameters:
  - context: context.Context
  - params: pagination.Params

Returns:
  - []User: Page of accounts
  - int64: Total account count
  - error: Database errors
*/
func (repository *PostgresRepository) List(context context.Context, params pagination.Params) ([]User, int64, error) {
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NULL",
		schema.IdentityUser.Table, schema.IdentityUser.DeletedAt)

	var total int64
	if err := repository.pool.QueryRow(context, countQuery).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "users")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s IS NULL
		ORDER BY %s
		LIMIT $1 OFFSET $2`,
		userColumns, schema.IdentityUser.Table,
		schema.IdentityUser.DeletedAt, schema.IdentityUser.Username,
	)

	rows, err := repository.pool.Query(context, query, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, dberr.Wrap(err, "users")
	}

	users, err := collectUsers(rows, params.Limit)
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

/*
ListByType returns a page of accounts of one type, ordered by username.

Parameters:
  - context: context.Context
  - userType: string
  - params: pagination.Params

Returns:
  - []User: Page of accounts
  - int64: Total count of accounts with that type
  - error: Database errors
*/
func (repository *PostgresRepository) ListByType(context context.Context, userType string, params pagination.Params) ([]User, int64, error) {
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1 AND %s IS NULL",
		schema.IdentityUser.Table, schema.IdentityUser.UserType, schema.IdentityUser.DeletedAt)

	var total int64
	if err := repository.pool.QueryRow(context, countQuery, userType).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "users")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s IS NULL
		ORDER BY %s
		LIMIT $2 OFFSET $3`,
		userColumns, schema.IdentityUser.Table,
		schema.IdentityUser.UserType, schema.IdentityUser.DeletedAt,
		schema.IdentityUser.Username,
	)

	rows, err := repository.pool.Query(context, query, userType, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, dberr.Wrap(err, "users")
	}

	users, err := collectUsers(rows, params.Limit)
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// collectUsers drains a multi-row result into entities.
func collectUsers(rows pgx.Rows, capacity int) ([]User, error) {
	defer rows.Close()

	users := make([]User, 0, capacity)
	for rows.Next() {
		var user User
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.PasswordHash,
			&user.FirstName,
			&user.LastName,
			&user.UserType,
			&user.IsEnabled,
			&user.IsLocked,
			&user.LastLoginAt,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_user_repo_scan_failed: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_user_repo_rows_failed: %w", err)
	}

	return users, nil
}

/*
Update persists changes to email, name fields and account type.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - error: apperr.NotFound, apperr.Conflict on duplicate email, or database errors
*/
func (repository *PostgresRepository) Update(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6
		WHERE %s = $1 AND %s IS NULL`,
		schema.IdentityUser.Table,
		schema.IdentityUser.Email, schema.IdentityUser.FirstName,
		schema.IdentityUser.LastName, schema.IdentityUser.UserType,
		schema.IdentityUser.UpdatedAt,
		schema.IdentityUser.ID, schema.IdentityUser.DeletedAt,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	user.UpdatedAt = time.Now()
	tag, err := querier.Exec(context, query, user.ID, user.Email, user.FirstName, user.LastName, user.UserType, user.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "user")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// setColumn updates a single column on a live account row.
func (repository *PostgresRepository) setColumn(context context.Context, id int64, column string, value any, operation string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3
		WHERE %s = $1 AND %s IS NULL`,
		schema.IdentityUser.Table, column, schema.IdentityUser.UpdatedAt,
		schema.IdentityUser.ID, schema.IdentityUser.DeletedAt,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	tag, err := querier.Exec(context, query, id, value, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_%s_failed: %w", operation, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

/*
UpdatePassword replaces only the account's password hash.

Parameters:
  - context: context.Context
  - userID: int64
  - newHash: string

Returns:
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) UpdatePassword(context context.Context, userID int64, newHash string) error {
	return repository.setColumn(context, userID, schema.IdentityUser.Password, newHash, "update_password")
}

/*
SetEnabled flips the administrative enabled flag.

Parameters:
  - context: context.Context
  - id: int64
  - enabled: bool

Returns:
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) SetEnabled(context context.Context, id int64, enabled bool) error {
	return repository.setColumn(context, id, schema.IdentityUser.IsEnabled, enabled, "set_enabled")
}

/*
SetLocked flips the security lock flag.

Parameters:
  - context: context.Context
  - id: int64
  - locked: bool

Returns:
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) SetLocked(context context.Context, id int64, locked bool) error {
	return repository.setColumn(context, id, schema.IdentityUser.IsLocked, locked, "set_locked")
}

/*
UpdateLastLogin stamps the most recent successful authentication.

Description: Plain unconditional UPDATE. Concurrent logins race harmlessly;
the newest writer wins and nothing downstream depends on strict ordering.

Parameters:
  - context: context.Context
  - id: int64
  - at: time.Time

Returns:
  - error: Database errors
*/
func (repository *PostgresRepository) UpdateLastLogin(context context.Context, id int64, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET %s = $2 WHERE %s = $1",
		schema.IdentityUser.Table, schema.IdentityUser.LastLoginAt, schema.IdentityUser.ID)

	querier := postgres.QuerierFrom(context, repository.pool)

	if _, err := querier.Exec(context, query, id, at); err != nil {
		return fmt.Errorf("postgres_user_repo_update_last_login_failed: %w", err)
	}

	return nil
}

/*
ReplaceRoles replaces the account's role set with the given role IDs.

Description: Deletes existing assignments and inserts the new set. Callers
wrap this in a transaction so a failure can never leave the account with a
partial role set.

Parameters:
  - context: context.Context
  - userID: int64
  - roleIDs: []int64

Returns:
  - error: Foreign key violations mapped to Conflict, or database errors
*/
func (repository *PostgresRepository) ReplaceRoles(context context.Context, userID int64, roleIDs []int64) error {
	querier := postgres.QuerierFrom(context, repository.pool)

	clear := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		schema.IdentityUserRole.Table, schema.IdentityUserRole.UserID)

	if _, err := querier.Exec(context, clear, userID); err != nil {
		return dberr.Wrap(err, "user roles")
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s)
		VALUES ($1, $2)
		ON CONFLICT (%s, %s) DO NOTHING`,
		schema.IdentityUserRole.Table,
		schema.IdentityUserRole.UserID, schema.IdentityUserRole.RoleID,
		schema.IdentityUserRole.UserID, schema.IdentityUserRole.RoleID,
	)

	for _, roleID := range roleIDs {
		if _, err := querier.Exec(context, insert, userID, roleID); err != nil {
			return dberr.Wrap(err, "user role")
		}
	}

	return nil
}

/*
AssignRole attaches a single role to the account, idempotently.

Parameters:
  - context: context.Context
  - userID: int64
  - roleID: int64

Returns:
  - error: Foreign key violations mapped to Conflict, or database errors
*/
func (repository *PostgresRepository) AssignRole(context context.Context, userID, roleID int64) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s)
		VALUES ($1, $2)
		ON CONFLICT (%s, %s) DO NOTHING`,
		schema.IdentityUserRole.Table,
		schema.IdentityUserRole.UserID, schema.IdentityUserRole.RoleID,
		schema.IdentityUserRole.UserID, schema.IdentityUserRole.RoleID,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	if _, err := querier.Exec(context, query, userID, roleID); err != nil {
		return dberr.Wrap(err, "user role")
	}

	return nil
}

/*
SoftDelete marks the account as deleted without removing the row.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) SoftDelete(context context.Context, id int64) error {
	query := fmt.Sprintf("UPDATE %s SET %s = $2 WHERE %s = $1 AND %s IS NULL",
		schema.IdentityUser.Table, schema.IdentityUser.DeletedAt,
		schema.IdentityUser.ID, schema.IdentityUser.DeletedAt)

	querier := postgres.QuerierFrom(context, repository.pool)

	tag, err := querier.Exec(context, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_soft_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}
