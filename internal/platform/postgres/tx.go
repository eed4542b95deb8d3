// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the minimal query surface shared by [*pgxpool.Pool] and [pgx.Tx].
//
// Repositories are written against this interface so the same code path runs
// inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txKey is the private context key holding an open transaction.
type txKey struct{}

// TxManager runs functions inside a database transaction.
//
// # Propagation
//
// The open [pgx.Tx] is carried in the context. Repositories resolve their
// querier via [QuerierFrom], so any repository call made inside the closure
// automatically joins the transaction. Nested WithinTx calls reuse the
// outer transaction rather than opening a second one.
//
// This is the atomicity boundary required between session mutations and
// their paired audit writes: a crash between the two can never leave a
// session active with no audit trace, or vice versa.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager constructs a [TxManager] bound to the given pool.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// WithinTx executes fn inside a transaction, committing on nil and rolling
// back on error or panic.
func (manager *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// Join an already-open transaction instead of nesting.
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := manager.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit transaction: %w", err)
	}

	return nil
}

// QuerierFrom returns the transaction bound to ctx, or fallback when the
// caller is not running inside [TxManager.WithinTx].
func QuerierFrom(ctx context.Context, fallback Querier) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return fallback
}
