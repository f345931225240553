package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/joeblew999/geoview/internal/db"
)

const createKVTable = `CREATE TABLE IF NOT EXISTS kv_store (
	key        VARCHAR PRIMARY KEY,
	value      VARCHAR NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT current_timestamp
)`

// Duck keeps documents in a DuckDB table. Updates run in a transaction and
// are serialised in-process since DuckDB aborts conflicting writers.
type Duck struct {
	db *sql.DB
	mu sync.Mutex
}

// NewDuck opens (or creates) the DuckDB database under dataDir. An empty
// dataDir keeps the database in memory.
func NewDuck(ctx context.Context, dataDir string) (*Duck, error) {
	conn, err := db.Open(ctx, db.Config{DataDir: dataDir, DBName: "geoview"})
	if err != nil {
		return nil, err
	}
	return NewDuckWithDB(ctx, conn)
}

// NewDuckWithDB uses an already open connection and takes ownership of it.
func NewDuckWithDB(ctx context.Context, conn *sql.DB) (*Duck, error) {
	// one connection keeps an in-memory database shared across calls
	conn.SetMaxOpenConns(1)
	if _, err := conn.ExecContext(ctx, createKVTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating kv_store table: %w", err)
	}
	return &Duck{db: conn}, nil
}

func (d *Duck) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return []byte(value), nil
}

func (d *Duck) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := checkKey(key); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning update of %s: %w", key, err)
	}
	defer tx.Rollback()

	var old []byte
	var value string
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("reading %s: %w", key, err)
	default:
		old = []byte(value)
	}

	next, err := fn(old)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO kv_store (key, value, updated_at) VALUES (?, ?, current_timestamp)`,
		key, string(next),
	); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", key, err)
	}
	return nil
}

func (d *Duck) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

func (d *Duck) Close() error {
	return d.db.Close()
}
