// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package auth

import (
	"context"
	"log/slog"
	"time"
)

// # Sweeper

// Sweeper periodically marks expired sessions as revoked so the registry
// reflects reality without waiting for each session to be presented again.
// Rows are never deleted; the history stays queryable for audit purposes.
type Sweeper struct {
	sessions SessionRepository
	logger   *slog.Logger
	interval time.Duration
}

// NewSweeper constructs a new [Sweeper] with necessary dependencies.
func NewSweeper(sessions SessionRepository, logger *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		logger:   logger,
		interval: interval,
	}
}

/*
Run sweeps expired sessions on the configured interval until the context is
cancelled.

Description: Intended to be started as a goroutine alongside the HTTP
server. A failed sweep is logged and retried on the next tick; it never
stops the loop.

Parameters:
  - context: context.Context
*/
func (sweeper *Sweeper) Run(context context.Context) {
	ticker := time.NewTicker(sweeper.interval)
	defer ticker.Stop()

	sweeper.logger.Info("session sweeper started", "interval", sweeper.interval.String())

	for {
		select {
		case <-context.Done():
			sweeper.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			sweeper.sweep(context)
		}
	}
}

// sweep performs a single pass.
func (sweeper *Sweeper) sweep(context context.Context) {
	started := time.Now()

	swept, err := sweeper.sessions.RevokeExpired(context)
	if err != nil {
		sweeper.logger.Error("session sweep failed", "error", err)
		return
	}

	if swept > 0 {
		sweeper.logger.Info("session sweep completed",
			"swept", swept,
			"duration", time.Since(started).String(),
		)
	}
}
