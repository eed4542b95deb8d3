// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/identra/identra/internal/platform/database/schema"
	"github.com/identra/identra/internal/platform/dberr"
	"github.com/identra/identra/internal/platform/postgres"
	"github.com/identra/identra/pkg/pagination"
)

// # Audit Repository

// PostgresRepository implements the Repository interface using pgx.
//
// Writes resolve their querier from the context, so an Insert issued inside
// [postgres.TxManager.WithinTx] joins the caller's transaction.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Insert persists a new audit entry into the identity.auditlog table.

Description: Append-only write. The entry ID and creation timestamp are
assigned by the database and written back into the entity.

Parameters:
  - context: context.Context
  - entry: *Entry

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresRepository) Insert(context context.Context, entry *Entry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s, %s`,
		schema.IdentityAuditLog.Table,
		schema.IdentityAuditLog.ActorID, schema.IdentityAuditLog.Action,
		schema.IdentityAuditLog.EntityType, schema.IdentityAuditLog.EntityID,
		schema.IdentityAuditLog.Before, schema.IdentityAuditLog.After,
		schema.IdentityAuditLog.IPAddress, schema.IdentityAuditLog.UserAgent,
		schema.IdentityAuditLog.ID, schema.IdentityAuditLog.CreatedAt,
	)

	querier := postgres.QuerierFrom(context, repository.pool)

	err := querier.QueryRow(context, query,
		entry.ActorID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.Before,
		entry.After,
		entry.IPAddress,
		entry.UserAgent,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("postgres_audit_repo_insert_failed: %w", err)
	}

	return nil
}

/*
Query returns audit entries matching the filter, newest first.

Description: Builds a WHERE clause from the non-zero filter fields, counts
the full match set, then fetches one page ordered by creation time.

Parameters:
  - context: context.Context
  - filter: Filter
  - params: pagination.Params

Returns:
  - []Entry: Matching page of entries
  - int64: Total matching count
  - error: Retrieval failures
*/
func (repository *PostgresRepository) Query(context context.Context, filter Filter, params pagination.Params) ([]Entry, int64, error) {
	conditions, args := buildFilter(filter)

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	// Total count for pagination metadata
	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", schema.IdentityAuditLog.Table, whereClause)
	if err := repository.pool.QueryRow(context, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "audit entries")
	}

	// Page fetch, newest first
	pageQuery := fmt.Sprintf(`
		SELECT %s
		FROM %s%s
		ORDER BY %s DESC, %s DESC
		LIMIT $%d OFFSET $%d`,
		strings.Join(schema.IdentityAuditLog.Columns(), ", "),
		schema.IdentityAuditLog.Table, whereClause,
		schema.IdentityAuditLog.CreatedAt, schema.IdentityAuditLog.ID,
		len(args)+1, len(args)+2)

	args = append(args, params.Limit, params.Offset())

	rows, err := repository.pool.Query(context, pageQuery, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "audit entries")
	}
	defer rows.Close()

	entries := make([]Entry, 0, params.Limit)
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Before,
			&entry.After,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres_audit_repo_scan_failed: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_audit_repo_rows_failed: %w", err)
	}

	return entries, total, nil
}

// buildFilter converts the non-zero filter fields into SQL conditions with
// positional arguments starting at $1.
func buildFilter(filter Filter) ([]string, []any) {
	var conditions []string
	var args []any

	add := func(column string, operator string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s %s $%d", column, operator, len(args)))
	}

	if filter.ActorID != nil {
		add(schema.IdentityAuditLog.ActorID, "=", *filter.ActorID)
	}
	if filter.Action != "" {
		add(schema.IdentityAuditLog.Action, "=", filter.Action)
	}
	if filter.EntityType != "" {
		add(schema.IdentityAuditLog.EntityType, "=", filter.EntityType)
	}
	if filter.EntityID != nil {
		add(schema.IdentityAuditLog.EntityID, "=", *filter.EntityID)
	}
	if filter.From != nil {
		add(schema.IdentityAuditLog.CreatedAt, ">=", *filter.From)
	}
	if filter.To != nil {
		add(schema.IdentityAuditLog.CreatedAt, "<=", *filter.To)
	}

	return conditions, args
}
