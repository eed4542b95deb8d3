// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

/*
Package auth implements authentication and session lifecycle management.

It owns the session registry (one row per issued refresh token), the token
engine (RS256 access tokens plus opaque rotated refresh tokens) and the
background sweeper that retires expired sessions.

# Architecture

  - Service: Orchestrates login, refresh rotation, logout and validation.
  - Repository: Postgres session registry; Redis carries an advisory
    revocation cache in front of it.
  - Sweeper: Periodic pass marking expired sessions revoked.

# Security Notes

Refresh tokens are stored only as SHA-256 hashes. Credential failures,
unknown accounts, and disabled or locked accounts all surface as the same
uniform error so nothing about the account state leaks to the caller.
*/
package auth

import "time"

// # Session States

// Status describes where a session is in its lifecycle.
type Status string

const (
	// StatusActive sessions accept refresh and validation.
	StatusActive Status = "ACTIVE"

	// StatusRevoked sessions were explicitly invalidated (logout, rotation,
	// administrative sweep). The state is terminal.
	StatusRevoked Status = "REVOKED"

	// StatusExpired sessions passed their deadline without revocation.
	// Terminal; the sweeper later marks them revoked in storage, which does
	// not change how they are treated.
	StatusExpired Status = "EXPIRED"
)

// # Domain Entities

// Session represents one issued refresh token.
type Session struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	TokenHash  string     `json:"-"` // SHA-256 of the refresh token. Omitted for security.
	DeviceName string     `json:"device_name,omitempty"`
	IPAddress  string     `json:"ip_address,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	IsRevoked  bool       `json:"is_revoked"`
	ExpiresAt  time.Time  `json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// StatusAt reports the session state at the given instant. Revocation wins
// over expiry so an explicitly killed session never reports EXPIRED.
func (session *Session) StatusAt(now time.Time) Status {
	if session.IsRevoked {
		return StatusRevoked
	}
	if !now.Before(session.ExpiresAt) {
		return StatusExpired
	}
	return StatusActive
}

// IsActive reports whether the session accepts refresh and validation at
// the given instant.
func (session *Session) IsActive(now time.Time) bool {
	return session.StatusAt(now) == StatusActive
}
