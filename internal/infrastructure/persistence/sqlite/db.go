// Package sqlite binds repositories to a transaction carried in the context.
package sqlite

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/pkg/database"
)

type txKey struct{}

// Executor covers both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB is the port.TransactionManager for the sqlite store. Repositories
// obtain their Executor from it so statements join the caller's transaction.
type DB struct {
	store  *database.DB
	logger *zap.Logger
}

// NewDB wraps an opened store
func NewDB(store *database.DB, logger *zap.Logger) *DB {
	return &DB{store: store, logger: logger}
}

// WithTransaction runs fn with a transaction attached to ctx. Nested calls
// join the outer transaction, so only the outermost one commits.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}
	return db.store.InTx(ctx, func(tx *sql.Tx) error {
		if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
			db.logger.Debug("Transaction rolled back", zap.Error(err))
			return err
		}
		return nil
	})
}

// Executor returns the transaction carried by ctx, or the pool outside one
func (db *DB) Executor(ctx context.Context) Executor {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db.store.DB
}

// InTransaction reports whether ctx carries a transaction
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}

var _ port.TransactionManager = (*DB)(nil)
