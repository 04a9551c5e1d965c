// Package repository provides typed access to the durable state shared
// by the extraction pipeline: tenants, processes, document history,
// tasks, and schedules. Each repository exposes only the queries the
// pipeline needs — it is not a general-purpose data-access layer.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting every
// repository method run either against the pool directly or inside an
// already-open transaction (the per-process upsert transaction in
// particular).
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DB wraps the connection pool all repositories are constructed from.
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB wraps an already-connected pool.
func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{Pool: pool}
}

// WithTx runs fn inside a transaction, committing on success and
// rolling back on error or panic. Each per-process upsert in the
// extractor uses exactly one of these, bounding the blast radius of a
// single process's failure (spec: "Each per-process upsert is its own
// transaction").
func (db *DB) WithTx(ctx context.Context, fn func(q querier) error) (err error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	err = fn(tx)
	return err
}
