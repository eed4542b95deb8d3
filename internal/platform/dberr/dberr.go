// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
//
// # Classification
//
// Every storage error is mapped into exactly one [apperr.AppError] class:
//
//   - pgx.ErrNoRows            → NOT_FOUND
//   - SQLSTATE 23505 (unique)  → CONFLICT
//   - SQLSTATE 23503 (FK)      → CONFLICT (delete-while-referenced)
//   - timeouts / connectivity  → STORE_UNAVAILABLE (retryable)
//   - anything else            → INTERNAL_ERROR
package dberr

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/identra/identra/internal/platform/apperr"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the
// error type. The resource name is used for NOT_FOUND messages.
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	// Row absence maps to a client-safe NOT_FOUND.
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	// Postgres constraint violations carry a SQLSTATE code.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.Conflict(resource + " already exists")
		case pgerrcode.ForeignKeyViolation:
			return apperr.Conflict(resource + " is still referenced")
		}
	}

	// Timeouts and connectivity failures are transient: safe to retry for
	// reads and idempotent writes, surfaced as 503 to the client.
	if IsTransient(err) {
		return apperr.TransientStore(err)
	}

	return apperr.Internal(err)
}

// IsTransient reports whether err is a timeout or connectivity failure.
func IsTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if pgconn.Timeout(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var connectErr *pgconn.ConnectError
	return errors.As(err, &connectErr)
}
