// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package user

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

// Handler implements account administration endpoints.
type Handler struct {
	userService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{userService: service}
}

// Routes returns a [chi.Router] configured with account administration
// routes. Read endpoints sit behind the read guard, every mutation behind
// the manage guard.
//
// # Endpoints
//   - GET    /                   : Paginated account list. (read)
//   - GET    /type/{userType}    : Accounts of one classification. (read)
//   - GET    /{userID}           : Account with its role names. (read)
//   - POST   /                   : Create an account.
//   - POST   /auto-register      : Provision with generated credentials.
//   - PUT    /{userID}           : Update profile fields.
//   - DELETE /{userID}           : Soft-delete the account.
//   - POST   /{userID}/enable    : Re-enable a disabled account.
//   - POST   /{userID}/disable   : Disable and revoke sessions.
//   - POST   /{userID}/lock      : Lock and revoke sessions.
//   - POST   /{userID}/unlock    : Release a security lock.
//   - PUT    /{userID}/roles     : Replace the account's role set.
//   - POST   /{userID}/password  : Rotate the account's password.
func (handler *Handler) Routes(read, manage func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.With(read).Get("/", handler.list)
	router.With(read).Get("/type/{userType}", handler.listByType)
	router.With(read).Get("/{userID}", handler.get)

	router.With(manage).Post("/", handler.create)
	router.With(manage).Post("/auto-register", handler.autoRegister)
	router.With(manage).Put("/{userID}", handler.update)
	router.With(manage).Delete("/{userID}", handler.delete)
	router.With(manage).Post("/{userID}/enable", handler.enable)
	router.With(manage).Post("/{userID}/disable", handler.disable)
	router.With(manage).Post("/{userID}/lock", handler.lock)
	router.With(manage).Post("/{userID}/unlock", handler.unlock)
	router.With(manage).Put("/{userID}/roles", handler.assignRoles)
	router.With(manage).Post("/{userID}/password", handler.changePassword)

	return router
}

// # Request Payloads

type createRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	UserType  string `json:"user_type"`
}

type updateRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	UserType  string `json:"user_type"`
}

type autoRegisterRequest struct {
	Email     string  `json:"email"`
	UserType  string  `json:"user_type"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	RoleIDs   []int64 `json:"role_ids"`
}

// autoRegisterResponse is the only surface that ever carries the temporary
// password in plain text.
type autoRegisterResponse struct {
	UserID            int64  `json:"user_id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	UserType          string `json:"user_type"`
	TemporaryPassword string `json:"temporary_password"`
	Message           string `json:"message"`
}

type assignRolesRequest struct {
	RoleIDs []int64 `json:"role_ids"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
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

// # Endpoints

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	users, total, err := handler.userService.List(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, users, pagination.NewMeta(params.Page, params.Limit, int(total)))
}

func (handler *Handler) listByType(writer http.ResponseWriter, request *http.Request) {
	userType := requestutil.Param(request, "userType")
	params := pagination.FromRequest(request)

	users, total, err := handler.userService.ListByType(request.Context(), userType, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, users, pagination.NewMeta(params.Page, params.Limit, int(total)))
}

/*
AutoRegister provisions an account with generated credentials.

POST /api/v1/users/auto-register

Description: Used by sibling services to enroll an account holder they know
only by email. The response carries the temporary password exactly once.

Response:
  - 201: autoRegisterResponse: Provisioned account and temporary password
  - 400: ErrValidation: Bad input or unknown user type
  - 409: ErrConflict: Email already exists
*/
func (handler *Handler) autoRegister(writer http.ResponseWriter, request *http.Request) {
	var input autoRegisterRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldUserType, input.UserType).
		MaxLen(FieldUserType, input.UserType, 20).
		MaxLen(FieldFirstName, input.FirstName, 100).
		MaxLen(FieldLastName, input.LastName, 100)
	for _, roleID := range input.RoleIDs {
		validator.PositiveID(FieldRoleIDs, roleID)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	registration, err := handler.userService.AutoRegister(request.Context(), actorFrom(request), AutoRegisterInput{
		Email:     input.Email,
		UserType:  input.UserType,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		RoleIDs:   input.RoleIDs,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, autoRegisterResponse{
		UserID:            registration.User.ID,
		Username:          registration.User.Username,
		Email:             registration.User.Email,
		UserType:          registration.User.UserType,
		TemporaryPassword: registration.TemporaryPassword,
		Message:           "Account provisioned. Rotate the temporary password on first login.",
	})
}

/*
Create handles the provisioning of a new account.

POST /api/v1/users

Response:
  - 201: User: Created account carrying the default role
  - 400: ErrValidation: Bad input
  - 409: ErrConflict: Username or email already exists
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	var input createRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, 3).
		MaxLen(FieldUsername, input.Username, 50).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8).
		MaxLen(FieldFirstName, input.FirstName, 100).
		MaxLen(FieldLastName, input.LastName, 100).
		MaxLen(FieldUserType, input.UserType, 20)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := handler.userService.Create(request.Context(), actorFrom(request), CreateInput{
		Username:  input.Username,
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		UserType:  input.UserType,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, created)
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntID(request, "userID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	found, err := handler.userService.Get(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, found)
}

func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntID(request, "userID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		MaxLen(FieldFirstName, input.FirstName, 100).
		MaxLen(FieldLastName, input.LastName, 100)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.userService.Update(request.Context(), actorFrom(request), id, UpdateInput{
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		UserType:  input.UserType,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, updated)
}

func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntID(request, "userID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.userService.Delete(request.Context(), actorFrom(request), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) enable(writer http.ResponseWriter, request *http.Request) {
	handler.setEnabled(writer, request, true)
}

func (handler *Handler) disable(writer http.ResponseWriter, request *http.Request) {
	handler.setEnabled(writer, request, false)
}

func (handler *Handler) setEnabled(writer http.ResponseWriter, request *http.Request, enabled bool) {
	id, err := requestutil.IntID(request, "userID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.userService.SetEnabled(request.Context(), actorFrom(request), id, enabled); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) lock(writer http.ResponseWriter, request *http.Request) {
	handler.setLocked(writer, request, true)
}

func (handler *Handler) unlock(writer http.ResponseWriter, request *http.Request) {
	handler.setLocked(writer, request, false)
}

func (handler *Handler) setLocked(writer http.ResponseWriter, request *http.Request, locked bool) {
	id, err := requestutil.IntID(request, "userID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.userService.SetLocked(request.Context(), actorFrom(request), id, locked); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) assignRoles(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntID(request, "userID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input assignRolesRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	for _, roleID := range input.RoleIDs {
		validator.PositiveID(FieldRoleIDs, roleID)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.userService.AssignRoles(request.Context(), actorFrom(request), id, input.RoleIDs)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, updated)
}

/*
ChangePassword rotates the account's password.

POST /api/v1/users/{userID}/password

Description: Requires the current password. On success every session of the
account is revoked and the caller must authenticate again.

Response:
  - 204: No Content: Password rotated
  - 401: AUTHENTICATION_FAILED: Wrong current password
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntID(request, "userID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required("current_password", input.CurrentPassword).
		Required("new_password", input.NewPassword).
		MinLen("new_password", input.NewPassword, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.userService.ChangePassword(request.Context(), actorFrom(request), id, input.CurrentPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
