// Package store persists small JSON documents under fixed keys.
//
// It stands in for the browser's local storage: the viewer keeps its whole
// upload list under one key and rewrites it on every change, so every backend
// offers an atomic read-modify-write in Update.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned for keys that cannot be stored safely.
var ErrInvalidKey = errors.New("invalid storage key")

// UpdateFunc receives the current value (nil when unset) and returns the
// value to store. Returning an error aborts the update.
type UpdateFunc func(old []byte) ([]byte, error)

// Store is a key-value store of serialized documents.
type Store interface {
	// Get returns the value for key, or nil when unset.
	Get(ctx context.Context, key string) ([]byte, error)
	// Update atomically replaces the value for key with fn's result.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	// Delete removes key. Deleting an unset key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Kind names a backend.
type Kind string

const (
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
	KindDuckDB Kind = "duckdb"
)

// Open returns the backend named by kind rooted at dataDir.
func Open(ctx context.Context, kind Kind, dataDir string) (Store, error) {
	switch kind {
	case KindMemory:
		return NewMemory(), nil
	case KindFile, "":
		return NewFile(dataDir), nil
	case KindDuckDB:
		return NewDuck(ctx, dataDir)
	default:
		return nil, fmt.Errorf("unknown store %q (want memory, file or duckdb)", kind)
	}
}

func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
