package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database, sets recommended pragmas, and validates connectivity.
//
// The pool is capped at a single connection: the store assumes one writer, and
// foreign_keys is a per-connection pragma.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA foreign_keys = ON;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set sqlite pragmas: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	return db, nil
}

// Querier is the subset of *sql.DB and *sql.Tx used by the stores.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx executes fn inside a transaction, rolling back on error or panic.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ForeignKeysEnabled reports whether the connection enforces foreign keys.
func ForeignKeysEnabled(ctx context.Context, q Querier) (bool, error) {
	var enabled int
	if err := q.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&enabled); err != nil {
		return false, fmt.Errorf("read foreign_keys pragma: %w", err)
	}
	return enabled == 1, nil
}

// Conn binds a store to either the pool or an already open transaction.
type Conn struct {
	pool *sql.DB
	tx   *sql.Tx
}

func PoolConn(pool *sql.DB) Conn { return Conn{pool: pool} }

func TxConn(tx *sql.Tx) Conn { return Conn{tx: tx} }

func (c Conn) Querier() Querier {
	if c.tx != nil {
		return c.tx
	}
	return c.pool
}

// Atomic runs fn in a transaction. Inside a TxConn it reuses the open
// transaction so the caller's commit decides.
func (c Conn) Atomic(ctx context.Context, fn func(q Querier) error) error {
	if c.tx != nil {
		return fn(c.tx)
	}
	return WithTx(ctx, c.pool, func(tx *sql.Tx) error {
		return fn(tx)
	})
}
