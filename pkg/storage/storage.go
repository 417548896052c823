// Package storage is the durable key/value boundary the task store persists through.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrNotFound is returned by Load when no value exists for the key.
var ErrNotFound = errors.New("storage: key not found")

type Backend interface {
	Load(ctx context.Context, namespace, key string) ([]byte, error)
	Save(ctx context.Context, namespace, key string, value []byte) error
	Close() error
}

const (
	KindSQLite = "sqlite"
	KindFile   = "file"
)

// Open returns the backend named by kind, rooted at dataDir.
func Open(kind, dataDir string) (Backend, error) {
	switch kind {
	case "", KindSQLite:
		return NewSQLite(filepath.Join(dataDir, "planner.db"))
	case KindFile:
		return NewFile(dataDir)
	}
	return nil, fmt.Errorf("unknown storage backend %q", kind)
}
