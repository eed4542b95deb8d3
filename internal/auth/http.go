// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/identra/identra/internal/platform/constants"
	"github.com/identra/identra/internal/platform/middleware"
	requestutil "github.com/identra/identra/internal/platform/request"
	"github.com/identra/identra/internal/platform/respond"
	"github.com/identra/identra/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the authentication endpoints.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /login      : Establish a session from credentials.
//   - POST /refresh    : Rotate a refresh token.
//   - POST /logout     : Revoke the presented session.
//   - POST /logout-all : Revoke every session of the caller.
//   - POST /validate   : Introspect an access token.
//   - GET  /sessions   : Active sessions of the caller.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)
	router.Post("/logout-all", handler.logoutAll)
	router.Post("/validate", handler.validateToken)
	router.Get("/sessions", handler.listSessions)

	return router
}

// # Request Payloads

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	DeviceName string `json:"device_name"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	DeviceName   string `json:"device_name"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type validateRequest struct {
	AccessToken string `json:"access_token"`
}

// tokenResponse flattens a [TokenPair] into the wire shape. expires_in is
// the access token lifetime in seconds, per OAuth convention.
func tokenResponse(pair *TokenPair) map[string]any {
	response := map[string]any{
		FieldAccessToken:  pair.AccessToken,
		FieldRefreshToken: pair.RefreshToken,
		FieldTokenType:    constants.TokenTypeBearer,
		FieldExpiresIn:    int64(pair.AccessTokenExpiresIn.Seconds()),
	}
	if pair.User != nil {
		response[FieldUser] = pair.User
	}
	return response
}

// # Endpoints

/*
Login handles credential authentication.

POST /api/v1/auth/login

Response:
  - 200: Token pair with the authenticated user
  - 400: ErrValidation: Bad input
  - 401: ErrAuthenticationFailed: Any credential or account-state failure
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		Required(FieldPassword, input.Password).
		MaxLen(FieldDeviceName, input.DeviceName, DeviceNameMaxLen)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.Login(request.Context(), LoginInput{
		Username:   input.Username,
		Password:   input.Password,
		DeviceName: input.DeviceName,
		IPAddress:  middleware.RealIP(request),
		UserAgent:  request.UserAgent(),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, tokenResponse(pair))
}

/*
Refresh handles refresh token rotation.

POST /api/v1/auth/refresh

Response:
  - 200: Rotated token pair
  - 400: ErrValidation: Bad input
  - 401: ErrInvalidToken: Unknown, expired, revoked, or replayed token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldRefreshToken, input.RefreshToken).
		MaxLen(FieldDeviceName, input.DeviceName, DeviceNameMaxLen)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.Refresh(request.Context(), RefreshInput{
		RefreshToken: input.RefreshToken,
		DeviceName:   input.DeviceName,
		IPAddress:    middleware.RealIP(request),
		UserAgent:    request.UserAgent(),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, tokenResponse(pair))
}

/*
Logout revokes the session behind the presented refresh token.

POST /api/v1/auth/logout

Response:
  - 204: Session revoked, or was already gone
  - 400: ErrValidation: Missing token
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	var input logoutRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldRefreshToken, input.RefreshToken)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.authService.Logout(request.Context(), input.RefreshToken, ClientMeta{
		IPAddress: middleware.RealIP(request),
		UserAgent: request.UserAgent(),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
LogoutAll revokes every active session of the authenticated caller.

POST /api/v1/auth/logout-all

Response:
  - 200: Count of revoked sessions
  - 401: ErrUnauthorized: No verified token on the request
*/
func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	revoked, err := handler.authService.LogoutAll(request.Context(), userID, ClientMeta{
		IPAddress: middleware.RealIP(request),
		UserAgent: request.UserAgent(),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{FieldRevoked: revoked})
}

/*
ValidateToken introspects an access token for resource services.

POST /api/v1/auth/validate

Response:
  - 200: valid flag, with the verified claims when valid
  - 400: ErrValidation: Missing token
*/
func (handler *Handler) validateToken(writer http.ResponseWriter, request *http.Request) {
	var input validateRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldAccessToken, input.AccessToken)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	claims, err := handler.authService.ValidateToken(request.Context(), input.AccessToken)
	if err != nil {
		// Introspection reports invalidity as data, not as a failure.
		respond.OK(writer, map[string]any{FieldValid: false})
		return
	}

	respond.OK(writer, map[string]any{
		FieldValid:    true,
		"user_id":     claims.UserID,
		"session_id":  claims.SessionID,
		FieldUsername: claims.Username,
		"roles":       claims.Roles,
		"permissions": claims.Permissions,
	})
}

/*
ListSessions returns the caller's active sessions, newest first.

GET /api/v1/auth/sessions

Response:
  - 200: Active sessions
  - 401: ErrUnauthorized: No verified token on the request
*/
func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.authService.ListSessions(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessions)
}
