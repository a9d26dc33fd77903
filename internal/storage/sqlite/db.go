// Package sqlite is the SQLite-backed implementation of storage.Storage.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/fenwick-labs/memoria/internal/storage"
)

// DB is the SQLite-backed Storage implementation. A process holds exactly
// one DB per database file: the *sql.DB connection pool serializes writers
// in-process, and a gofrs/flock exclusive lock on "<path>.lock" serializes
// writers across processes.
type DB struct {
	db   *sql.DB
	path string
	lock *flock.Flock

	mu     sync.Mutex
	tx     *sql.Tx // set while a top-level RunInTransaction is in flight, nil otherwise
	txDone bool
}

var _ storage.Storage = (*DB)(nil)

const flockRetryInterval = 50 * time.Millisecond

// Open creates or opens the database at path, acquires the cross-process
// write lock, and runs any pending migrations.
func Open(ctx context.Context, path string) (*DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	fl := flock.New(path + ".lock")
	locked, err := fl.TryLockContext(ctx, flockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquire database lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("database %s is locked by another process", path)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate", path)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		fl.Unlock()
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1) // the driver multiplexes writers at the connection level; keep one to simplify transaction scoping

	d := &DB{db: sqlDB, path: path, lock: fl}

	if err := RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		fl.Unlock()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return d, nil
}

func (d *DB) Close() error {
	err := d.db.Close()
	if uerr := d.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

func (d *DB) Path() string { return d.path }

// querier is satisfied by both *sql.DB and *sql.Tx, letting every CRUD
// method run unmodified whether or not a transaction is active.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the active transaction's querier if RunInTransaction has one
// in flight on this goroutine's call chain, otherwise the pooled *sql.DB.
// Nested RunInTransaction calls collapse onto the same *sql.Tx.
func (d *DB) conn() querier {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tx != nil {
		return d.tx
	}
	return d.db
}

// txHandle adapts *DB to storage.Transaction by routing every method through
// conn(), which already resolves to the in-flight *sql.Tx.
type txHandle struct{ d *DB }

func (d *DB) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	d.mu.Lock()
	if d.tx != nil {
		// Already inside a transaction: run fn against it directly, no nested BEGIN.
		d.mu.Unlock()
		return fn(txHandle{d})
	}
	d.mu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	d.mu.Lock()
	d.tx = tx
	d.mu.Unlock()

	committed := false
	defer func() {
		d.mu.Lock()
		d.tx = nil
		d.mu.Unlock()
		if !committed {
			tx.Rollback()
		}
	}()

	if err := fn(txHandle{d}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
