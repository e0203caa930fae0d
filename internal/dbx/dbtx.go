// Package dbx provides the tiny DB abstractions shared by repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx, and the
// unit-of-work helper that wraps one logical operation in one transaction.
package dbx

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ktb-community/community-be-main/internal/common"
)

// DBTX is the subset of database/sql used by our repositories.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn as one unit of work: it checks out a single connection,
// begins a transaction, and commits on success or rolls back on error/panic.
// Panics are rethrown after the rollback. fn's error is returned unchanged so
// sentinel matching with errors.Is keeps working across the boundary.
//
// Failures of the transaction machinery itself (begin, commit) are reported
// as common.ErrStoreUnavailable; they are infrastructure faults, not business
// errors. The transaction (and with it the pooled connection) is finished
// exactly once on every path. fn must not call WithTx again: operations
// compose at the service-method boundary, one unit of work per call.
//
// The caller's deadline travels in ctx and applies to the begin, every
// statement issued through the handle, and the commit.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", common.ErrStoreUnavailable, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("%w: commit: %v", common.ErrStoreUnavailable, cerr)
		}
	}()

	err = fn(ctx, tx)
	return err
}
