package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/accounts-api/internal/platform/logger"
)

// TxFn is a function that executes within a database transaction.
// It receives the context and a transaction, and returns an error if the operation fails.
// The transaction is committed if the function returns nil, or rolled back if it returns an error.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// Transactor runs a TxFn inside a transaction. Services depend on it rather
// than on *sql.DB so the unit of work can be replaced in tests.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn TxFn) error
}

// DBTransactor is the Transactor backed by a real database connection.
type DBTransactor struct {
	DB *sql.DB
}

// NewDBTransactor returns a Transactor that opens transactions on db.
func NewDBTransactor(db *sql.DB) *DBTransactor {
	return &DBTransactor{DB: db}
}

// RunInTransaction implements Transactor.
func (t *DBTransactor) RunInTransaction(ctx context.Context, fn TxFn) error {
	return RunInTransaction(ctx, t.DB, fn)
}

// RunInTransaction runs fn in a transaction on db. The transaction commits
// when fn returns nil and rolls back when fn returns an error or panics; a
// panic is re-raised after the rollback.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) (err error) {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", slog.String("error", err.Error()))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		p := recover()
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error("failed to roll back transaction", slog.String("error", rbErr.Error()))
			if p == nil {
				err = errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
			}
		}
		if p != nil {
			log.Error("rolled back transaction after panic", slog.Any("panic", p))
			// ALLOW-PANIC: the caller's panic continues once the tx is released
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		log.Debug("rolling back transaction", slog.String("error", err.Error()))
		return err
	}

	if err = tx.Commit(); err != nil {
		log.Error("failed to commit transaction", slog.String("error", err.Error()))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}
