package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

var _ Transactor = (*TxManager)(nil)

// TxManager opens read-committed transactions and hands them to repositories
// through the context. Notification insert and outbox enqueue share one.
type TxManager struct {
	db  *DB
	log *zap.Logger
}

func NewTransactor(db *DB, logger *zap.Logger) *TxManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TxManager{db: db, log: logger.With(zap.String("component", "pg.tx"))}
}

// WithTx commits when fn returns nil and rolls back otherwise, including on
// panic. A nested call joins the outer transaction.
func (t *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}

	ctx, span := otel.Tracer("postgres").Start(ctx, "pg.tx")
	defer span.End()

	tx, err := t.db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", mapErr(err))
	}
	txCtx := context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			t.rollback(ctx, tx)
			panic(p)
		}
		if err != nil {
			span.RecordError(err)
			t.rollback(ctx, tx)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			span.RecordError(cerr)
			err = fmt.Errorf("commit: %w", mapErr(cerr))
		}
	}()

	return fn(txCtx)
}

func (t *TxManager) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		t.log.Warn("rollback failed", zap.Error(err))
	}
}

type txKey struct{}

func txFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok && tx != nil
}

type execQueryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// execQueryer returns the transaction in ctx, or the pool outside one.
func (db *DB) execQueryer(ctx context.Context) execQueryer {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return db.Pool
}
