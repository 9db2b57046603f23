package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/platform/logger"
)

// ErrTransactionFailed is returned when a transaction cannot be started or committed.
var ErrTransactionFailed = errors.New("transaction failed")

// TxFn is a function that executes within a database transaction.
// The transaction is committed if the function returns nil, or rolled back otherwise.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction executes fn inside a single database transaction.
//
// Every exit path finishes the transaction: a nil return commits, an error
// return rolls back and returns the error from fn, and a panic rolls back
// before it is re-raised.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) (err error) {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", slog.String("error", err.Error()))
		return fmt.Errorf("%w: begin: %w", ErrTransactionFailed, err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}

		p := recover()
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", rbErr.Error()),
				slog.Any("panic", p))
			if p == nil {
				err = fmt.Errorf("error rolling back transaction: %v (original error: %w)", rbErr, err)
			}
		} else {
			log.Debug("rolled back transaction", slog.Any("panic", p))
		}

		if p != nil {
			// ALLOW-PANIC: Propagating caught panic from transaction
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		log.Error("failed to commit transaction", slog.String("error", err.Error()))
		committed = true // a failed commit leaves nothing to roll back
		return fmt.Errorf("%w: commit: %w", ErrTransactionFailed, err)
	}

	committed = true
	log.Debug("transaction committed")
	return nil
}
