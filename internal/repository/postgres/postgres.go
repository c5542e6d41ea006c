package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arazshah/callyou/internal/core/port"
)

// pgExecutor is satisfied by pgxpool.Pool, pgx.Tx, and pgxmock pools so
// repositories can run against the pool, an ambient transaction, or a mock.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txBeginner starts transactions. pgxpool.Pool satisfies it.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type txContextKey struct{}

// TxManager implements port.TxManager on top of a pgx pool. The transaction
// is stored on the context so repositories called inside fn join it.
type TxManager struct {
	db txBeginner
}

// NewTxManager constructs a TxManager for the provided pool.
func NewTxManager(db txBeginner) *TxManager {
	return &TxManager{db: db}
}

// RunInTx begins a transaction, runs fn with it attached to the context, and
// commits on success. A nested call joins the outer transaction.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txContextKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			return fmt.Errorf("rollback transaction: %v (original: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(pgx.Tx)
	return tx, ok
}

// executorFrom prefers the transaction riding in the context over the
// repository's own executor.
func executorFrom(ctx context.Context, fallback pgExecutor) pgExecutor {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return fallback
}

var _ port.TxManager = (*TxManager)(nil)
