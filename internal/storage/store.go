// Package storage persists the visitor count record. Every backend creates
// the record lazily with a zero count the first time it is loaded.
package storage

import (
	"context"
	"errors"
	"fmt"

	"portfolio/internal/model"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

var (
	ErrMalformedRecord = errors.New("malformed visitor count record")
	ErrUnknownBackend  = errors.New("unknown storage backend")
	ErrClosed          = errors.New("store closed")
)

// Store is the persisted counter record. Implementations are not required to
// be safe for concurrent use; the engine serializes access.
type Store interface {
	Load(ctx context.Context) (model.VisitorCount, error)
	Save(ctx context.Context, rec model.VisitorCount) error
	Close() error
}

// Incrementer is implemented by stores that can bump the count in one
// atomic step.
type Incrementer interface {
	Increment(ctx context.Context) (model.VisitorCount, error)
}

type Config struct {
	Backend string
	Path    string
}

// ValidBackend reports whether name is a known backend.
func ValidBackend(name string) bool {
	switch name {
	case BackendFile, BackendSQLite, BackendMemory:
		return true
	default:
		return false
	}
}

// Open returns the backend named by cfg.Backend.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendFile:
		return NewFileStore(cfg.Path), nil
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
