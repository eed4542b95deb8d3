// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package rbac

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

// # Role Repository

// PostgresRoleRepository implements the RoleRepository interface using pgx.
//
// All statements resolve their querier from the context, so calls made inside
// [postgres.TxManager.WithinTx] join the caller's transaction.
type PostgresRoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository creates a new PostgreSQL implementation of RoleRepository.
func NewRoleRepository(pool *pgxpool.Pool) *PostgresRoleRepository {
	return &PostgresRoleRepository{pool: pool}
}

var (
	roleColumns       = strings.Join(schema.IdentityRole.Columns(), ", ")
	permissionColumns = strings.Join(schema.IdentityPermission.Columns(), ", ")
)

// prefixColumns qualifies each column with a table alias for join queries.
func prefixColumns(alias string, columns []string) string {
	qualified := make([]string, len(columns))
	for index, column := range columns {
		qualified[index] = alias + "." + column
	}
	return strings.Join(qualified, ", ")
}

func scanRole(row pgx.Row) (*Role, error) {
	role := &Role{}
	err := row.Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&role.IsDefault,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return role, nil
}

/*
Create persists a new role into the identity.role table.

Description: The role ID and timestamps are assigned by the database and
written back into the entity. A duplicate name maps to a Conflict error.

Parameters:
  - context: context.Context
  - role: *Role

Returns:
  - error: apperr.Conflict on duplicate name, or database errors
*/
func (repository *PostgresRoleRepository) Create(context context.Context, role *Role) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		VALUES ($1, $2, $3)
		RETURNING %s, %s, %s`,
		schema.IdentityRole.Table,
		schema.IdentityRole.Name, schema.IdentityRole.Description, schema.IdentityRole.IsDefault,
		schema.IdentityRole.ID, schema.IdentityRole.CreatedAt, schema.IdentityRole.UpdatedAt,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	err := querier.QueryRow(context, query, role.Name, role.Description, role.IsDefault).
		Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)

	if err != nil {
		return dberr.Wrap(err, "role")
	}

	return nil
}

/*
FindByID retrieves a role by its primary key.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - *Role: Hydrated entity, permissions not loaded
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRoleRepository) FindByID(context context.Context, id int64) (*Role, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		roleColumns, schema.IdentityRole.Table, schema.IdentityRole.ID)

	querier := postgres.QuerierFrom(context, repository.pool)

	role, err := scanRole(querier.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Role")
		}
		return nil, fmt.Errorf("postgres_role_repo_find_by_id_failed: %w", err)
	}

	return role, nil
}

/*
FindByName retrieves a role by its unique name.

Parameters:
  - context: context.Context
  - name: string

Returns:
  - *Role: Hydrated entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRoleRepository) FindByName(context context.Context, name string) (*Role, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		roleColumns, schema.IdentityRole.Table, schema.IdentityRole.Name)

	querier := postgres.QuerierFrom(context, repository.pool)

	role, err := scanRole(querier.QueryRow(context, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Role")
		}
		return nil, fmt.Errorf("postgres_role_repo_find_by_name_failed: %w", err)
	}

	return role, nil
}

/*
List returns a page of roles ordered by name.

Parameters:
  - context: context.Context
  - params: pagination.Params

Returns:
  - []Role: Page of roles
  - int64: Total role count
  - error: Database errors
*/
func (repository *PostgresRoleRepository) List(context context.Context, params pagination.Params) ([]Role, int64, error) {
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", schema.IdentityRole.Table)

	var total int64
	if err := repository.pool.QueryRow(context, countQuery).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "roles")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		ORDER BY %s
		LIMIT $1 OFFSET $2`,
		roleColumns, schema.IdentityRole.Table, schema.IdentityRole.Name,
	)

	rows, err := repository.pool.Query(context, query, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, dberr.Wrap(err, "roles")
	}
	defer rows.Close()

	roles := make([]Role, 0, params.Limit)
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsDefault, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("postgres_role_repo_scan_failed: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_role_repo_rows_failed: %w", err)
	}

	return roles, total, nil
}

/*
Update persists changes to a role's name and description.

Parameters:
  - context: context.Context
  - role: *Role

Returns:
  - error: apperr.NotFound, apperr.Conflict on duplicate name, or database errors
*/
func (repository *PostgresRoleRepository) Update(context context.Context, role *Role) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4
		WHERE %s = $1`,
		schema.IdentityRole.Table,
		schema.IdentityRole.Name, schema.IdentityRole.Description, schema.IdentityRole.UpdatedAt,
		schema.IdentityRole.ID,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	role.UpdatedAt = time.Now()
	tag, err := querier.Exec(context, query, role.ID, role.Name, role.Description, role.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "role")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Role")
	}

	return nil
}

/*
Delete removes a role and its permission edges.

Description: The rolepermission edges cascade via foreign key; user
assignment checks belong to the service layer.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRoleRepository) Delete(context context.Context, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		schema.IdentityRole.Table, schema.IdentityRole.ID)

	querier := postgres.QuerierFrom(context, repository.pool)

	tag, err := querier.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "role")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Role")
	}

	return nil
}

/*
SetDefault atomically transfers the default flag to the given role.

Description: A single UPDATE touches the current holder and the new holder,
so no intermediate state with zero or two defaults is ever visible.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - error: apperr.NotFound when the role does not exist, or database errors
*/
func (repository *PostgresRoleRepository) SetDefault(context context.Context, id int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = (%s = $1), %s = NOW()
		WHERE %s = TRUE OR %s = $1`,
		schema.IdentityRole.Table,
		schema.IdentityRole.IsDefault, schema.IdentityRole.ID, schema.IdentityRole.UpdatedAt,
		schema.IdentityRole.IsDefault, schema.IdentityRole.ID,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	tag, err := querier.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "role")
	}
	// Zero rows means the target role does not exist and no default was set.
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Role")
	}

	return nil
}

/*
FindDefault returns the role currently flagged as default.

Parameters:
  - context: context.Context

Returns:
  - *Role: Default role
  - error: apperr.NotFound when no default is configured
*/
func (repository *PostgresRoleRepository) FindDefault(context context.Context) (*Role, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = TRUE",
		roleColumns, schema.IdentityRole.Table, schema.IdentityRole.IsDefault)

	querier := postgres.QuerierFrom(context, repository.pool)

	role, err := scanRole(querier.QueryRow(context, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Default role")
		}
		return nil, fmt.Errorf("postgres_role_repo_find_default_failed: %w", err)
	}

	return role, nil
}

/*
AddPermission attaches a permission to a role, idempotently.

Parameters:
  - context: context.Context
  - roleID: int64
  - permissionID: int64

Returns:
  - error: Foreign key violations mapped to Conflict, or database errors
*/
func (repository *PostgresRoleRepository) AddPermission(context context.Context, roleID, permissionID int64) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s)
		VALUES ($1, $2)
		ON CONFLICT (%s, %s) DO NOTHING`,
		schema.IdentityRolePermission.Table,
		schema.IdentityRolePermission.RoleID, schema.IdentityRolePermission.PermissionID,
		schema.IdentityRolePermission.RoleID, schema.IdentityRolePermission.PermissionID,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	if _, err := querier.Exec(context, query, roleID, permissionID); err != nil {
		return dberr.Wrap(err, "role permission")
	}

	return nil
}

/*
RemovePermission detaches a permission from a role.

Parameters:
  - context: context.Context
  - roleID: int64
  - permissionID: int64

Returns:
  - error: apperr.NotFound when the edge does not exist, or database errors
*/
func (repository *PostgresRoleRepository) RemovePermission(context context.Context, roleID, permissionID int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = $2",
		schema.IdentityRolePermission.Table,
		schema.IdentityRolePermission.RoleID, schema.IdentityRolePermission.PermissionID)

	querier := postgres.QuerierFrom(context, repository.pool)

	tag, err := querier.Exec(context, query, roleID, permissionID)
	if err != nil {
		return dberr.Wrap(err, "role permission")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Role permission")
	}

	return nil
}

/*
PermissionsForRole returns every permission attached to the role.

Parameters:
  - context: context.Context
  - roleID: int64

Returns:
  - []Permission: Attached permissions ordered by code
  - error: Database errors
*/
func (repository *PostgresRoleRepository) PermissionsForRole(context context.Context, roleID int64) ([]Permission, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s p
		JOIN %s rp ON rp.%s = p.%s
		WHERE rp.%s = $1
		ORDER BY p.%s`,
		prefixColumns("p", schema.IdentityPermission.Columns()),
		schema.IdentityPermission.Table,
		schema.IdentityRolePermission.Table,
		schema.IdentityRolePermission.PermissionID, schema.IdentityPermission.ID,
		schema.IdentityRolePermission.RoleID,
		schema.IdentityPermission.Code,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	rows, err := querier.Query(context, query, roleID)
	if err != nil {
		return nil, dberr.Wrap(err, "role permissions")
	}
	defer rows.Close()

	var permissions []Permission
	for rows.Next() {
		var permission Permission
		if err := rows.Scan(
			&permission.ID,
			&permission.Code,
			&permission.Name,
			&permission.Description,
			&permission.Category,
			&permission.Service,
			&permission.IsActive,
			&permission.CreatedAt,
			&permission.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_role_repo_permissions_scan_failed: %w", err)
		}
		permissions = append(permissions, permission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_role_repo_permissions_rows_failed: %w", err)
	}

	return permissions, nil
}

/*
RolesForUser returns every role held by the user.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - []Role: Held roles ordered by name
  - error: Database errors
*/
func (repository *PostgresRoleRepository) RolesForUser(context context.Context, userID int64) ([]Role, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s r
		JOIN %s ur ON ur.%s = r.%s
		WHERE ur.%s = $1
		ORDER BY r.%s`,
		prefixColumns("r", schema.IdentityRole.Columns()),
		schema.IdentityRole.Table,
		schema.IdentityUserRole.Table,
		schema.IdentityUserRole.RoleID, schema.IdentityRole.ID,
		schema.IdentityUserRole.UserID,
		schema.IdentityRole.Name,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	rows, err := querier.Query(context, query, userID)
	if err != nil {
		return nil, dberr.Wrap(err, "user roles")
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsDefault, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres_role_repo_user_roles_scan_failed: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_role_repo_user_roles_rows_failed: %w", err)
	}

	return roles, nil
}

/*
CountAssignedUsers returns how many users currently hold the role.

Parameters:
  - context: context.Context
  - roleID: int64

Returns:
  - int64: Assignment count
  - error: Database errors
*/
func (repository *PostgresRoleRepository) CountAssignedUsers(context context.Context, roleID int64) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1",
		schema.IdentityUserRole.Table, schema.IdentityUserRole.RoleID)

	querier := postgres.QuerierFrom(context, repository.pool)

	var count int64
	if err := querier.QueryRow(context, query, roleID).Scan(&count); err != nil {
		return 0, dberr.Wrap(err, "role assignments")
	}

	return count, nil
}

/*
ResolvePermissionCodes returns the effective permission codes for a user.

Description: Unions active permission codes across every role the user
holds. Inactive permissions are filtered at resolution time, so a
deactivation takes effect on the next authorization check.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - []string: Sorted distinct codes
  - error: Database errors
*/
func (repository *PostgresRoleRepository) ResolvePermissionCodes(context context.Context, userID int64) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT p.%s
		FROM %s p
		JOIN %s rp ON rp.%s = p.%s
		JOIN %s ur ON ur.%s = rp.%s
		WHERE ur.%s = $1 AND p.%s = TRUE
		ORDER BY p.%s`,
		schema.IdentityPermission.Code,
		schema.IdentityPermission.Table,
		schema.IdentityRolePermission.Table,
		schema.IdentityRolePermission.PermissionID, schema.IdentityPermission.ID,
		schema.IdentityUserRole.Table,
		schema.IdentityUserRole.RoleID, schema.IdentityRolePermission.RoleID,
		schema.IdentityUserRole.UserID, schema.IdentityPermission.IsActive,
		schema.IdentityPermission.Code,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	rows, err := querier.Query(context, query, userID)
	if err != nil {
		return nil, dberr.Wrap(err, "permissions")
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("postgres_role_repo_resolve_scan_failed: %w", err)
		}
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_role_repo_resolve_rows_failed: %w", err)
	}

	return codes, nil
}

// # Permission Repository

// PostgresPermissionRepository implements the PermissionRepository interface.
type PostgresPermissionRepository struct {
	pool *pgxpool.Pool
}

// NewPermissionRepository creates a new PostgreSQL implementation of PermissionRepository.
func NewPermissionRepository(pool *pgxpool.Pool) *PostgresPermissionRepository {
	return &PostgresPermissionRepository{pool: pool}
}

func scanPermission(row pgx.Row) (*Permission, error) {
	permission := &Permission{}
	err := row.Scan(
		&permission.ID,
		&permission.Code,
		&permission.Name,
		&permission.Description,
		&permission.Category,
		&permission.Service,
		&permission.IsActive,
		&permission.CreatedAt,
		&permission.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return permission, nil
}

/*
Create persists a new permission into the identity.permission table.

Parameters:
  - context: context.Context
  - permission: *Permission

Returns:
  - error: apperr.Conflict on duplicate code, or database errors
*/
func (repository *PostgresPermissionRepository) Create(context context.Context, permission *Permission) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s, %s, %s`,
		schema.IdentityPermission.Table,
		schema.IdentityPermission.Code, schema.IdentityPermission.Name,
		schema.IdentityPermission.Description, schema.IdentityPermission.Category,
		schema.IdentityPermission.Service, schema.IdentityPermission.IsActive,
		schema.IdentityPermission.ID, schema.IdentityPermission.CreatedAt, schema.IdentityPermission.UpdatedAt,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	err := querier.QueryRow(context, query,
		permission.Code,
		permission.Name,
		permission.Description,
		permission.Category,
		permission.Service,
		permission.IsActive,
	).Scan(&permission.ID, &permission.CreatedAt, &permission.UpdatedAt)

	if err != nil {
		return dberr.Wrap(err, "permission")
	}

	return nil
}

/*
FindByID retrieves a permission by its primary key.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - *Permission: Hydrated entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresPermissionRepository) FindByID(context context.Context, id int64) (*Permission, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		permissionColumns, schema.IdentityPermission.Table, schema.IdentityPermission.ID)

	querier := postgres.QuerierFrom(context, repository.pool)

	permission, err := scanPermission(querier.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Permission")
		}
		return nil, fmt.Errorf("postgres_permission_repo_find_by_id_failed: %w", err)
	}

	return permission, nil
}

/*
FindByCode retrieves a permission by its unique code.

Parameters:
  - context: context.Context
  - code: string

Returns:
  - *Permission: Hydrated entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresPermissionRepository) FindByCode(context context.Context, code string) (*Permission, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		permissionColumns, schema.IdentityPermission.Table, schema.IdentityPermission.Code)

	querier := postgres.QuerierFrom(context, repository.pool)

	permission, err := scanPermission(querier.QueryRow(context, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Permission")
		}
		return nil, fmt.Errorf("postgres_permission_repo_find_by_code_failed: %w", err)
	}

	return permission, nil
}

/*
List returns a page of permissions matching the filter, ordered by code.

Description: Category and owning service filters are exact matches; an
empty filter lists the whole catalog.

Parameters:
  - context: context.Context
  - filter: PermissionFilter
  - params: pagination.Params

Returns:
  - []Permission: Page of permissions
  - int64: Total matching count
  - error: Database errors
*/
func (repository *PostgresPermissionRepository) List(context context.Context, filter PermissionFilter, params pagination.Params) ([]Permission, int64, error) {
	var conditions []string
	var args []any

	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.IdentityPermission.Category, len(args)))
	}
	if filter.Service != "" {
		args = append(args, filter.Service)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.IdentityPermission.Service, len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", schema.IdentityPermission.Table, whereClause)

	var total int64
	if err := repository.pool.QueryRow(context, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "permissions")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		permissionColumns, schema.IdentityPermission.Table, whereClause,
		schema.IdentityPermission.Code, len(args)+1, len(args)+2,
	)

	args = append(args, params.Limit, params.Offset())

	rows, err := repository.pool.Query(context, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "permissions")
	}
	defer rows.Close()

	permissions := make([]Permission, 0, params.Limit)
	for rows.Next() {
		var permission Permission
		if err := rows.Scan(
			&permission.ID,
			&permission.Code,
			&permission.Name,
			&permission.Description,
			&permission.Category,
			&permission.Service,
			&permission.IsActive,
			&permission.CreatedAt,
			&permission.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres_permission_repo_scan_failed: %w", err)
		}
		permissions = append(permissions, permission)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_permission_repo_rows_failed: %w", err)
	}

	return permissions, total, nil
}

/*
Update persists changes to a permission's descriptive fields and active
flag. The code is immutable and deliberately absent from the SET list.

Parameters:
  - context: context.Context
  - permission: *Permission

Returns:
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresPermissionRepository) Update(context context.Context, permission *Permission) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7
		WHERE %s = $1`,
		schema.IdentityPermission.Table,
		schema.IdentityPermission.Name, schema.IdentityPermission.Description,
		schema.IdentityPermission.Category, schema.IdentityPermission.Service,
		schema.IdentityPermission.IsActive, schema.IdentityPermission.UpdatedAt,
		schema.IdentityPermission.ID,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	permission.UpdatedAt = time.Now()
	tag, err := querier.Exec(context, query,
		permission.ID,
		permission.Name,
		permission.Description,
		permission.Category,
		permission.Service,
		permission.IsActive,
		permission.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "permission")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Permission")
	}

	return nil
}

/*
Delete removes a permission.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresPermissionRepository) Delete(context context.Context, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		schema.IdentityPermission.Table, schema.IdentityPermission.ID)

	querier := postgres.QuerierFrom(context, repository.pool)

	tag, err := querier.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "permission")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Permission")
	}

	return nil
}

/*
CountAttachedRoles returns how many roles currently carry the permission.

Parameters:
  - context: context.Context
  - permissionID: int64

Returns:
  - int64: Attachment count
  - error: Database errors
*/
func (repository *PostgresPermissionRepository) CountAttachedRoles(context context.Context, permissionID int64) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1",
		schema.IdentityRolePermission.Table, schema.IdentityRolePermission.PermissionID)

	querier := postgres.QuerierFrom(context, repository.pool)

	var count int64
	if err := querier.QueryRow(context, query, permissionID).Scan(&count); err != nil {
		return 0, dberr.Wrap(err, "permission attachments")
	}

	return count, nil
}
