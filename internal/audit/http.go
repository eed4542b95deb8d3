// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/identra/identra/internal/platform/respond"
	"github.com/identra/identra/internal/platform/validate"
	"github.com/identra/identra/pkg/pagination"
)

// # Definitions & Constructors

// Handler exposes read-only audit queries over HTTP.
//
// # Scope
//
// Audit entries are immutable, so this handler serves GET only. Route
// protection (authentication plus the audit read permission) is applied by
// the router that mounts it.
type Handler struct {
	recorder *Recorder
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(recorder *Recorder) *Handler {
	return &Handler{recorder: recorder}
}

// Routes returns a [chi.Router] configured with audit query routes.
//
// # Endpoints
//   - GET / : Paginated audit entries, filterable by actor, entity, action and date range.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", handler.list)
	return router
}

/*
List returns a filtered, paginated page of audit entries.

GET /api/v1/audit

Description: Accepts optional query parameters (actor_id, action,
entity_type, entity_id, from, to) that compose into a single filter.
Timestamps use RFC 3339.

Response:
  - 200: []Entry with pagination metadata
  - 400: ErrValidation: Malformed filter parameter
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	filter, err := filterFromQuery(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)

	entries, total, err := handler.recorder.List(request.Context(), filter, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, entries, pagination.NewMeta(params.Page, params.Limit, int(total)))
}

// filterFromQuery parses the audit filter from URL query parameters.
func filterFromQuery(request *http.Request) (Filter, error) {
	var filter Filter
	query := request.URL.Query()

	validator := &validate.Validator{}

	if raw := query.Get(FieldActorID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			validator.Custom(FieldActorID, true, "must be a positive integer")
		} else {
			filter.ActorID = &id
		}
	}

	if raw := query.Get(FieldEntityID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			validator.Custom(FieldEntityID, true, "must be a positive integer")
		} else {
			filter.EntityID = &id
		}
	}

	filter.Action = query.Get(FieldAction)
	filter.EntityType = query.Get(FieldEntityType)

	if raw := query.Get(FieldFrom); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			validator.Custom(FieldFrom, true, "must be an RFC 3339 timestamp")
		} else {
			filter.From = &from
		}
	}

	if raw := query.Get(FieldTo); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			validator.Custom(FieldTo, true, "must be an RFC 3339 timestamp")
		} else {
			filter.To = &to
		}
	}

	if err := validator.Err(); err != nil {
		return Filter{}, err
	}

	return filter, nil
}
