package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/phrazzld/scry-feeder/internal/platform/logger"
)

// TxFn is a function that executes within a database transaction.
// It receives the context and a transaction, and returns an error if the operation fails.
// The transaction is committed if the function returns nil, or rolled back if it returns an error.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// Transactor runs units of work in transactions and savepoints.
type Transactor interface {
	// RunInTransaction executes fn in a new transaction.
	RunInTransaction(ctx context.Context, fn TxFn) error

	// Savepoint executes fn inside tx under a named savepoint. If fn fails,
	// only the work since the savepoint is rolled back and tx stays usable.
	Savepoint(ctx context.Context, tx *sql.Tx, name string, fn TxFn) error
}

// SQLTransactor implements Transactor on a *sql.DB.
type SQLTransactor struct {
	db *sql.DB
}

var _ Transactor = (*SQLTransactor)(nil)

// NewTransactor creates a Transactor for db.
// It panics if db is nil.
func NewTransactor(db *sql.DB) *SQLTransactor {
	if db == nil {
		panic("db cannot be nil")
	}
	return &SQLTransactor{db: db}
}

// RunInTransaction implements Transactor.
func (t *SQLTransactor) RunInTransaction(ctx context.Context, fn TxFn) error {
	return RunInTransaction(ctx, t.db, fn)
}

var savepointName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Savepoint implements Transactor.
func (t *SQLTransactor) Savepoint(ctx context.Context, tx *sql.Tx, name string, fn TxFn) error {
	log := logger.FromContext(ctx)

	if !savepointName.MatchString(name) {
		return fmt.Errorf("%w: invalid savepoint name %q", ErrTransactionFailed, name)
	}

	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("%w: failed to create savepoint %s: %v", ErrTransactionFailed, name, err)
	}

	if err := fn(ctx, tx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			log.Error("failed to roll back to savepoint",
				slog.String("savepoint", name),
				slog.String("rollback_error", rbErr.Error()),
				slog.String("original_error", err.Error()))
			return fmt.Errorf(
				"%w: failed to roll back to savepoint %s: %v (original error: %w)",
				ErrTransactionFailed,
				name,
				rbErr,
				err,
			)
		}
		log.Debug("rolled back to savepoint due to error",
			slog.String("savepoint", name),
			slog.String("error", err.Error()))
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("%w: failed to release savepoint %s: %v", ErrTransactionFailed, name, err)
	}
	return nil
}

// RunInTransaction executes the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// Otherwise, the transaction is committed.
// The function handles rollbacks in case of panic and logs appropriate information.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) error {
	// Get logger from context or use default
	log := logger.FromContext(ctx)

	// Begin a transaction
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction",
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Set up defer to handle panics and roll back the transaction if needed
	defer func() {
		if p := recover(); p != nil {
			txErr := tx.Rollback()
			if txErr != nil {
				log.Error("failed to roll back transaction after panic",
					slog.String("error", txErr.Error()),
					slog.Any("panic", p))
			} else {
				log.Error("rolled back transaction after panic",
					slog.Any("panic", p))
			}
			// ALLOW-PANIC: Propagating caught panic from transaction
			panic(p)
		}
	}()

	err = fn(ctx, tx)
	if err != nil {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", rollbackErr.Error()),
				slog.String("original_error", err.Error()))
			return fmt.Errorf(
				"error rolling back transaction: %v (original error: %w)",
				rollbackErr,
				err,
			)
		}
		log.Debug("rolled back transaction due to error",
			slog.String("error", err.Error()))
		return err
	}

	err = tx.Commit()
	if err != nil {
		log.Error("failed to commit transaction",
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug("transaction committed successfully")
	return nil
}
