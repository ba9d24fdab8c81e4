package local

import (
	"context"
	"fmt"

	"github.com/krisalay/storefront-cache/platform"
)

// Backend names a basket persistence backend.
type Backend string

const (
	MemoryBackend     Backend = "memory"
	SQLiteBackend     Backend = "sqlite"
	MySQLBackend      Backend = "mysql"
	PostgreSQLBackend Backend = "postgresql"
)

/*
BasketStore persists basket lines per shopper session.
Lines are returned ordered by (product, variant) so every backend answers the same way.
*/
type BasketStore interface {
	Items(ctx context.Context, sessionID string) ([]platform.BasketItem, error)

	// Add increases a line's quantity, creating the line if needed.
	Add(ctx context.Context, sessionID, productID, variantID string, qty int) error

	// Set replaces a line's quantity; qty <= 0 deletes the line.
	Set(ctx context.Context, sessionID, productID, variantID string, qty int) error

	// Remove deletes a line. Removing a missing line is a no-op.
	Remove(ctx context.Context, sessionID, productID, variantID string) error

	Clear(ctx context.Context, sessionID string) error
	Close() error
}

// NewBasketStore opens the store for backend. connStr is ignored for memory,
// optional for sqlite (defaults to an in-memory database) and required otherwise.
func NewBasketStore(backend Backend, connStr string) (BasketStore, error) {
	switch backend {
	case MemoryBackend, "":
		return NewMemoryBasketStore(), nil
	case SQLiteBackend, MySQLBackend, PostgreSQLBackend:
		return NewSQLBasketStore(backend, connStr)
	default:
		return nil, fmt.Errorf("unsupported basket backend: %s. Must be memory, sqlite, mysql, or postgresql", backend)
	}
}
