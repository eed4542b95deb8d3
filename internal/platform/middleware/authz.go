// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/identra/identra/internal/platform/constants"
	"github.com/identra/identra/internal/platform/ctxutil"
	"github.com/identra/identra/internal/platform/sec"
)

// TokenVerifier checks an access token and confirms the session behind it
// is still live. The auth service is the canonical implementation; its check
// goes beyond signature validation and consults the session registry.
type TokenVerifier interface {
	ValidateToken(ctx context.Context, tokenString string) (*sec.AuthClaims, error)
}

// PermissionResolver computes the effective permission codes for a user at
// request time. Token claims carry a permission snapshot, but authorization
// decisions must reflect the current role and permission graph, so the
// middleware always resolves through this interface instead of trusting
// the token payload.
type PermissionResolver interface {
	ResolvePermissionCodes(ctx context.Context, userID int64) ([]string, error)
}

// # Authentication

// Authenticate parses the Authorization header and, when a valid bearer
// token is present, attaches the verified claims to the request context.
// Requests without a token pass through unauthenticated; handlers that
// require identity must additionally be wrapped with RequireAuth.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Extract the bearer token
			header := request.Header.Get(constants.HeaderAuthorization)
			if header == "" {
				next.ServeHTTP(writer, request)
				return
			}

			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, constants.TokenTypeBearer) || token == "" {
				writeError(writer, http.StatusUnauthorized, "INVALID_TOKEN", "Malformed Authorization header")
				return
			}

			// 2. Verify signature, expiry and session liveness
			claims, err := verifier.ValidateToken(request.Context(), token)
			if err != nil {
				writeError(writer, http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired")
				return
			}

			// 3. Attach the verified identity to the context
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that carry no verified identity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetAuthUser(request.Context()) == nil {
			writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// # Authorization

// RequirePermission restricts a route to users whose effective permission
// set, resolved live through the role graph, contains the given code.
func RequirePermission(resolver PermissionResolver, code string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			claims := ctxutil.GetAuthUser(request.Context())
			if claims == nil {
				writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			// Always resolve against the current graph, never the token snapshot
			codes, err := resolver.ResolvePermissionCodes(request.Context(), claims.UserID)
			if err != nil {
				writeError(writer, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Permission resolution failed")
				return
			}

			for _, held := range codes {
				if held == code {
					next.ServeHTTP(writer, request)
					return
				}
			}

			writeError(writer, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
		})
	}
}

// RequireRole restricts a route to users holding one of the named roles.
// Role membership is read from the verified token claims; it is refreshed
// on every login and refresh, which is acceptable for the coarse admin
// gates this guard protects.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			claims := ctxutil.GetAuthUser(request.Context())
			if claims == nil {
				writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			for _, required := range roles {
				for _, held := range claims.Roles {
					if held == required {
						next.ServeHTTP(writer, request)
						return
					}
				}
			}

			writeError(writer, http.StatusForbidden, "FORBIDDEN", "Insufficient role")
		})
	}
}
