// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/pkg/pagination"
)

// # Recorder

// Recorder writes audit entries and serves audit queries.
//
// # Atomicity
//
// Record resolves its querier from the context. When the caller runs inside
// [postgres.TxManager.WithinTx], the audit row commits or rolls back with the
// rest of the operation. Callers on hard-fail paths must treat a Record error
// as the operation's error.
type Recorder struct {
	repository Repository
}

// NewRecorder constructs a new [Recorder] with its storage dependency.
func NewRecorder(repository Repository) *Recorder {
	return &Recorder{repository: repository}
}

/*
Record serializes and persists a single audit event.

Description: Marshals the before/after snapshots to JSON and appends the
entry. A persistence failure is returned as AUDIT_WRITE_FAILED so the caller
can fail (and roll back) the operation being audited.

Parameters:
  - context: context.Context
  - event: Event

Returns:
  - error: apperr.AuditWriteFailed on any persistence failure
*/
func (recorder *Recorder) Record(context context.Context, event Event) error {
	entry := &Entry{
		ActorID:    event.ActorID,
		Action:     event.Action,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		IPAddress:  event.IPAddress,
		UserAgent:  event.UserAgent,
	}

	// Serialize optional state snapshots
	var err error
	if event.Before != nil {
		if entry.Before, err = json.Marshal(event.Before); err != nil {
			return apperr.AuditWriteFailed(fmt.Errorf("audit_marshal_before_failed: %w", err))
		}
	}
	if event.After != nil {
		if entry.After, err = json.Marshal(event.After); err != nil {
			return apperr.AuditWriteFailed(fmt.Errorf("audit_marshal_after_failed: %w", err))
		}
	}

	if err := recorder.repository.Insert(context, entry); err != nil {
		return apperr.AuditWriteFailed(err)
	}

	return nil
}

/*
List returns a page of audit entries matching the filter, newest first.

Parameters:
  - context: context.Context
  - filter: Filter
  - params: pagination.Params

Returns:
  - []Entry: Matching page
  - int64: Total matching count
  - error: Retrieval failures
*/
func (recorder *Recorder) List(context context.Context, filter Filter, params pagination.Params) ([]Entry, int64, error) {
	return recorder.repository.Query(context, filter, params)
}
