// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

/*
Package rbac provides the HTTP delivery layer for role and permission
administration.

# Architecture

The handler acts as a thin mediation layer between the web and the domain
service:
  - Protocol: Standard RESTful JSON interface.
  - Verification: Enforces strict input validation before passing to [Service].
  - Identity: The acting administrator is read from the verified token claims
    and threaded through to the audit trail.

This layer is strictly responsible for transport concerns (status codes,
headers, JSON).
*/
package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/identra/identra/internal/audit"
	"github.com/identra/identra/internal/platform/middleware"
	requestutil "github.com/identra/identra/internal/platform/request"
	"github.com/identra/identra/internal/platform/respond"
	"github.com/identra/identra/internal/platform/validate"
	"github.com/identra/identra/pkg/pagination"
)

// # Definitions & Constructors

// Handler implements role and permission administration endpoints.
type Handler struct {
	rbacService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{rbacService: service}
}

// RoleRoutes returns a [chi.Router] configured with role administration routes.
//
// # Endpoints
//   - GET    /                                    : Paginated role list.
//   - POST   /                                    : Create a role.
//   - GET    /default                             : Current default roles.
//   - GET    /by-name/{roleName}                  : Role looked up by name.
//   - GET    /{roleID}                            : Role with its permissions.
//   - PUT    /{roleID}                            : Update name and description.
//   - DELETE /{roleID}                            : Delete an unassigned role.
//   - POST   /{roleID}/default                    : Make this role the default.
//   - POST   /{roleID}/permissions/{permissionID} : Attach a permission.
//   - DELETE /{roleID}/permissions/{permissionID} : Detach a permission.
func (handler *Handler) RoleRoutes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.listRoles)
	router.Post("/", handler.createRole)
	router.Get("/default", handler.getDefaultRoles)
	router.Get("/by-name/{roleName}", handler.getRoleByName)
	router.Get("/{roleID}", handler.getRole)
	router.Put("/{roleID}", handler.updateRole)
	router.Delete("/{roleID}", handler.deleteRole)
	router.Post("/{roleID}/default", handler.setDefaultRole)
	router.Post("/{roleID}/permissions/{permissionID}", handler.addPermission)
	router.Delete("/{roleID}/permissions/{permissionID}", handler.removePermission)

	return router
}

// PermissionRoutes returns a [chi.Router] configured with permission routes.
//
// # Endpoints
//   - GET    /                            : Paginated list, filterable by
//     category and service query parameters.
//   - POST   /                            : Create a permission.
//   - GET    /by-code/{permissionCode}    : Permission looked up by code.
//   - GET    /{permissionID}              : Single permission.
//   - PUT    /{permissionID}              : Update descriptive fields.
//   - DELETE /{permissionID}              : Delete an unattached permission.
//   - POST   /{permissionID}/activate     : Reactivate.
//   - POST   /{permissionID}/deactivate   : Deactivate without detaching.
func (handler *Handler) PermissionRoutes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.listPermissions)
	router.Post("/", handler.createPermission)
	router.Get("/by-code/{permissionCode}", handler.getPermissionByCode)
	router.Get("/{permissionID}", handler.getPermission)
	router.Put("/{permissionID}", handler.updatePermission)
	router.Delete("/{permissionID}", handler.deletePermission)
	router.Post("/{permissionID}/activate", handler.activatePermission)
	router.Post("/{permissionID}/deactivate", handler.deactivatePermission)

	return router
}

// # Request Payloads

type roleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type permissionRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Service     string `json:"service"`
}

type permissionUpdateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Service     string `json:"service"`
}

// actorFrom builds the audit actor from the authenticated request.
func actorFrom(request *http.Request) audit.Actor {
	actor := audit.Actor{
		IPAddress: middleware.RealIP(request),
		UserAgent: request.UserAgent(),
	}
	if claims := requestutil.Claims(request); claims != nil {
		actor.ID = &claims.UserID
	}
	return actor
}

// # Role Endpoints

func (handler *Handler) listRoles(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	roles, total, err := handler.rbacService.ListRoles(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, roles, pagination.NewMeta(params.Page, params.Limit, int(total)))
}

/*
CreateRole handles the creation of a new role.

POST /api/v1/roles

Response:
  - 201: Role: Created role
  - 400: ErrValidation: Bad input
  - 409: ErrConflict: Role name already exists
*/
func (handler *Handler) createRole(writer http.ResponseWriter, request *http.Request) {
	var input roleRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, 100).
		MaxLen(FieldDescription, input.Description, 500)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.rbacService.CreateRole(request.Context(), actorFrom(request), RoleInput{
		Name:        input.Name,
		Description: input.Description,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, role)
}

func (handler *Handler) getRole(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntID(request, "roleID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.rbacService.GetRole(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, role)
}

func (handler *Handler) getRoleByName(writer http.ResponseWriter, request *http.Request) {
	name := requestutil.Param(request, "roleName")

	role, err := handler.rbacService.GetRoleByName(request.Context(), name)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, role)
}

func (handler *Handler) updateRole(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntID(request, "roleID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input roleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, 100).
		MaxLen(FieldDescription, input.Description, 500)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.rbacService.UpdateRole(request.Context(), actorFrom(request), id, RoleInput{
		Name:        input.Name,
		Description: input.Description,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, role)
}

func (handler *Handler) deleteRole(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntID(request, "roleID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.rbacService.DeleteRole(request.Context(), actorFrom(request), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) getDefaultRoles(writer http.ResponseWriter, request *http.Request) {
	roles, err := handler.rbacService.GetDefaultRoles(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, roles)
}

func (handler *Handler) setDefaultRole(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntID(request, "roleID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.rbacService.SetRoleAsDefault(request.Context(), actorFrom(request), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, role)
}

func (handler *Handler) addPermission(writer http.ResponseWriter, request *http.Request) {
	roleID, err := requestutil.IntID(request, "roleID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	permissionID, err := requestutil.IntID(request, "permissionID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.rbacService.AddPermissionToRole(request.Context(), actorFrom(request), roleID, permissionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) removePermission(writer http.ResponseWriter, request *http.Request) {
	roleID, err := requestutil.IntID(request, "roleID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	permissionID, err := requestutil.IntID(request, "permissionID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.rbacService.RemovePermissionFromRole(request.Context(), actorFrom(request), roleID, permissionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Permission Endpoints

func (handler *Handler) listPermissions(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	filter := PermissionFilter{
		Category: request.URL.Query().Get(FieldCategory),
		Service:  request.URL.Query().Get(FieldService),
	}

	permissions, total, err := handler.rbacService.ListPermissions(request.Context(), filter, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, permissions, pagination.NewMeta(params.Page, params.Limit, int(total)))
}

/*
CreatePermission handles the creation of a new permission.

POST /api/v1/permissions

Response:
  - 201: Permission: Created permission, active by default
  - 400: ErrValidation: Bad input or malformed code
  - 409: ErrConflict: Permission code already exists
*/
func (handler *Handler) createPermission(writer http.ResponseWriter, request *http.Request) {
	var input permissionRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCode, input.Code).
		Code(FieldCode, input.Code).
		MaxLen(FieldCode, input.Code, 100).
		Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, 100).
		MaxLen(FieldDescription, input.Description, 500).
		MaxLen(FieldCategory, input.Category, 100).
		MaxLen(FieldService, input.Service, 100)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	permission, err := handler.rbacService.CreatePermission(request.Context(), actorFrom(request), PermissionInput{
		Code:        input.Code,
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		Service:     input.Service,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, permission)
}

func (handler *Handler) getPermission(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntID(request, "permissionID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	permission, err := handler.rbacService.GetPermission(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, permission)
}

func (handler *Handler) getPermissionByCode(writer http.ResponseWriter, request *http.Request) {
	code := requestutil.Param(request, "permissionCode")

	permission, err := handler.rbacService.GetPermissionByCode(request.Context(), code)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, permission)
}

func (handler *Handler) updatePermission(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntID(request, "permissionID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input permissionUpdateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, 100).
		MaxLen(FieldDescription, input.Description, 500).
		MaxLen(FieldCategory, input.Category, 100).
		MaxLen(FieldService, input.Service, 100)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	permission, err := handler.rbacService.UpdatePermission(request.Context(), actorFrom(request), id, PermissionInput{
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		Service:     input.Service,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, permission)
}

func (handler *Handler) deletePermission(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntID(request, "permissionID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.rbacService.DeletePermission(request.Context(), actorFrom(request), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) activatePermission(writer http.ResponseWriter, request *http.Request) {
	handler.setActive(writer, request, true)
}

func (handler *Handler) deactivatePermission(writer http.ResponseWriter, request *http.Request) {
	handler.setActive(writer, request, false)
}

func (handler *Handler) setActive(writer http.ResponseWriter, request *http.Request, active bool) {
	id, err := requestutil.IntID(request, "permissionID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	permission, err := handler.rbacService.SetPermissionActive(request.Context(), actorFrom(request), id, active)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, permission)
}
