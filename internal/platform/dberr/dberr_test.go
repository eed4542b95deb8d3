// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package dberr_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/dberr"
)

/*
TestWrap_Classification verifies the mapping from storage errors to the
application error taxonomy.
*/
func TestWrap_Classification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "no_rows_is_not_found",
			err:      pgx.ErrNoRows,
			wantCode: "NOT_FOUND",
		},
		{
			name:     "unique_violation_is_conflict",
			err:      &pgconn.PgError{Code: pgerrcode.UniqueViolation},
			wantCode: "CONFLICT",
		},
		{
			name:     "fk_violation_is_conflict",
			err:      &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation},
			wantCode: "CONFLICT",
		},
		{
			name:     "deadline_is_transient",
			err:      context.DeadlineExceeded,
			wantCode: "STORE_UNAVAILABLE",
		},
		{
			name:     "unknown_is_internal",
			err:      errors.New("corrupted page"),
			wantCode: "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := dberr.Wrap(tt.err, "User")
			require.Error(t, wrapped)
			assert.True(t, apperr.IsCode(wrapped, tt.wantCode), "got %v", wrapped)
		})
	}
}

/*
TestWrap_Nil verifies the nil passthrough.
*/
func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, dberr.Wrap(nil, "User"))
}

/*
TestWrap_ResourceInMessage verifies that NOT_FOUND and CONFLICT messages name
the resource rather than leaking SQL detail.
*/
func TestWrap_ResourceInMessage(t *testing.T) {
	notFound := dberr.Wrap(pgx.ErrNoRows, "Role")
	assert.Equal(t, "Role not found", notFound.Error())

	conflict := dberr.Wrap(&pgconn.PgError{Code: pgerrcode.UniqueViolation}, "Role")
	assert.Equal(t, "Role already exists", conflict.Error())
}

/*
TestIsTransient verifies the retryability predicate.
*/
func TestIsTransient(t *testing.T) {
	assert.True(t, dberr.IsTransient(context.DeadlineExceeded))
	assert.False(t, dberr.IsTransient(errors.New("syntax error")))
	assert.False(t, dberr.IsTransient(pgx.ErrNoRows))
}
