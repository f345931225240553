package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Config holds database configuration.
// An empty DataDir opens an in-memory database.
type Config struct {
	DataDir string
	DBName  string
}

// Path returns the database file path, or "" for an in-memory database.
func (c Config) Path() string {
	if c.DataDir == "" {
		return ""
	}
	name := c.DBName
	if name == "" {
		name = "geoview"
	}
	return filepath.Join(c.DataDir, "duckdb", name+".duckdb")
}

// Open opens a DuckDB connection. The caller owns it and must Close it.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	path := cfg.Path()
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
	}

	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to duckdb: %w", err)
	}
	return conn, nil
}
