// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package audit

import (
	"context"

	"github.com/identra/identra/pkg/pagination"
)

// # Audit Data Access

// Repository defines the append-only data access contract for audit entries.
type Repository interface {

	/*
		Insert persists a new audit entry.

		Parameters:
		  - context: context.Context
		  - entry: *Entry

		Returns:
		  - error: Persistence failures
	*/
	Insert(context context.Context, entry *Entry) error

	/*
		Query returns entries matching the filter, newest first.

		Parameters:
		  - context: context.Context
		  - filter: Filter (zero-valued fields are ignored)
		  - params: pagination.Params

		Returns:
		  - []Entry: Matching page of entries
		  - int64: Total matching count
		  - error: Retrieval failures
	*/
	Query(context context.Context, filter Filter, params pagination.Params) ([]Entry, int64, error)
}
