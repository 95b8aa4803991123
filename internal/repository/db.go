package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is wrapped by every repository error caused by a missing row
var ErrNotFound = errors.New("not found")

//go:embed schema.sql
var schema string

// Namespaces for two-key advisory locks. The two-key space never overlaps
// the single bigint keys used by LockAuthor.
const (
	lockNamespaceViewer int32 = 1
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// DB wraps the connection pool. Repositories built on the same DB join
// the transaction opened by InTx through the context.
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new database handle
func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

// InTx runs fn inside a transaction. Nested calls reuse the outer transaction.
func (d *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// LockAuthor takes a transaction-scoped advisory lock on the author id.
// The single-key advisory space is only used for per-author posting locks.
func (d *DB) LockAuthor(ctx context.Context, authorID int64) error {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok {
		return errors.New("failed to lock author: no transaction in context")
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, authorID); err != nil {
		return fmt.Errorf("failed to lock author: %w", err)
	}
	return nil
}

// LockViewer takes a transaction-scoped advisory lock on the viewer id, so
// one viewer's reads are recorded and counted one transaction at a time
func (d *DB) LockViewer(ctx context.Context, viewerID int64) error {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok {
		return errors.New("failed to lock viewer: no transaction in context")
	}
	query := `SELECT pg_advisory_xact_lock($1::int4, hashtext($2::bigint::text))`
	if _, err := tx.Exec(ctx, query, lockNamespaceViewer, viewerID); err != nil {
		return fmt.Errorf("failed to lock viewer: %w", err)
	}
	return nil
}

// ApplySchema creates missing tables and indexes
func (d *DB) ApplySchema(ctx context.Context) error {
	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (d *DB) conn(ctx context.Context) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return d.pool
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
