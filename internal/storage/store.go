// Package storage persists JSON documents by key. Every backend stores the
// bytes it is given without interpreting them.
package storage

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/stockroom/internal/shared"
)

// ErrNotFound is returned by Get when no document exists for the key.
var ErrNotFound = fmt.Errorf("storage: document %w", shared.ErrNotFound)

// UpdateFunc receives the current document, nil when absent, and returns
// the replacement.
type UpdateFunc func(current []byte) ([]byte, error)

// Store is implemented by every backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// Update performs an atomic read-modify-write of one key.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Close() error
}
