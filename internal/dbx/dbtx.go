// Package dbx holds the database handle abstraction shared by repositories
// and the transaction scope used by every mutating service operation.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ReadCommitted is the minimum isolation level ownership checks rely on.
var ReadCommitted = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// WithTx runs fn in a transaction: commit when fn returns nil, rollback on
// an error or a panic (which is rethrown). fn's error is returned as is,
// joined with the rollback error if that fails too.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error {
	_, err := InTx(ctx, db, opts, func(ctx context.Context, tx DBTX) (struct{}, error) {
		return struct{}{}, fn(ctx, tx)
	})
	return err
}

// InTx is WithTx for functions producing a value. The value is returned
// only once the commit has succeeded.
//
//	task, err := dbx.InTx(ctx, db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) (*models.Task, error) {
//	    return repo(tx).Update(ctx, id, patch)
//	})
func InTx[T any](ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) (T, error)) (T, error) {
	var zero T

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return zero, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	result, err := fn(ctx, tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		return zero, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}
