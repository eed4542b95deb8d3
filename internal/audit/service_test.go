// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/internal/audit"
	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/pkg/pagination"
)

// fakeRepository is an in-memory Repository for recorder tests.
type fakeRepository struct {
	entries   []audit.Entry
	insertErr error
}

func (f *fakeRepository) Insert(_ context.Context, entry *audit.Entry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	entry.ID = int64(len(f.entries) + 1)
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeRepository) Query(_ context.Context, filter audit.Filter, params pagination.Params) ([]audit.Entry, int64, error) {
	var matched []audit.Entry
	for _, entry := range f.entries {
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && entry.EntityType != filter.EntityType {
			continue
		}
		matched = append(matched, entry)
	}
	return matched, int64(len(matched)), nil
}

/*
TestRecorder_Record verifies snapshot serialization and entry persistence.
*/
func TestRecorder_Record(t *testing.T) {
	repo := &fakeRepository{}
	recorder := audit.NewRecorder(repo)

	actorID := int64(7)
	entityID := int64(42)

	err := recorder.Record(context.Background(), audit.Event{
		ActorID:    &actorID,
		Action:     audit.ActionRoleUpdated,
		EntityType: audit.EntityRole,
		EntityID:   &entityID,
		Before:     map[string]any{"name": "viewer"},
		After:      map[string]any{"name": "reader"},
		IPAddress:  "203.0.113.9",
	})
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)

	entry := repo.entries[0]
	assert.Equal(t, audit.ActionRoleUpdated, entry.Action)
	assert.Equal(t, audit.EntityRole, entry.EntityType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, int64(7), *entry.ActorID)

	var before map[string]string
	require.NoError(t, json.Unmarshal(entry.Before, &before))
	assert.Equal(t, "viewer", before["name"])
}

/*
TestRecorder_Record_NilSnapshots verifies events without state snapshots
persist with empty before/after payloads.
*/
func TestRecorder_Record_NilSnapshots(t *testing.T) {
	repo := &fakeRepository{}
	recorder := audit.NewRecorder(repo)

	err := recorder.Record(context.Background(), audit.Event{
		Action:     audit.ActionLoginFailed,
		EntityType: audit.EntityUser,
	})
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)

	entry := repo.entries[0]
	assert.Nil(t, entry.ActorID)
	assert.Nil(t, entry.Before)
	assert.Nil(t, entry.After)
}

/*
TestRecorder_Record_StorageFailure verifies that a failed insert surfaces as
AUDIT_WRITE_FAILED so the surrounding operation fails with it.
*/
func TestRecorder_Record_StorageFailure(t *testing.T) {
	repo := &fakeRepository{insertErr: errors.New("connection reset")}
	recorder := audit.NewRecorder(repo)

	err := recorder.Record(context.Background(), audit.Event{
		Action:     audit.ActionUserLogin,
		EntityType: audit.EntitySession,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "AUDIT_WRITE_FAILED"))
}

/*
TestRecorder_List verifies filter pass-through to the repository.
*/
func TestRecorder_List(t *testing.T) {
	repo := &fakeRepository{entries: []audit.Entry{
		{ID: 1, Action: audit.ActionUserLogin, EntityType: audit.EntitySession},
		{ID: 2, Action: audit.ActionRoleCreated, EntityType: audit.EntityRole},
		{ID: 3, Action: audit.ActionUserLogin, EntityType: audit.EntitySession},
	}}
	recorder := audit.NewRecorder(repo)

	entries, total, err := recorder.List(context.Background(), audit.Filter{Action: audit.ActionUserLogin}, pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, entries, 2)
}
