package swap

import (
	"context"

	"github.com/optakt/account-gc/internal/trie"
)

// Storage is the key/value backend interface the swap executor consumes.
// The backend itself — tables, transactions, durability — lives outside
// this module; internal/storage provides a concrete badger-backed
// implementation that is wired into it at startup.
type Storage interface {
	// CreateTable creates a table with the same schema as the live
	// account-state table. It is idempotent: creating a table that already
	// exists is not an error.
	CreateTable(ctx context.Context, name string) error
	// DeleteTable drops the named table entirely.
	DeleteTable(ctx context.Context, name string) error
	// IsEmpty reports whether the named table currently holds no rows.
	IsEmpty(ctx context.Context, name string) (bool, error)
	// FirstKey returns the first key in the named table, for diagnostics
	// only; ok is false if the table is empty.
	FirstKey(ctx context.Context, name string) (key []byte, ok bool, err error)
	// WithTransaction runs fn inside a single synchronous, durable
	// transaction. If fn returns an error, the transaction is aborted and
	// none of its writes are visible.
	WithTransaction(ctx context.Context, fn func(Tx) error) error
}

// Tx is a single synchronous, durable transaction against the storage
// backend.
type Tx interface {
	// WriteNode writes one (H, N) row into the named table.
	WriteNode(table string, h trie.Hash, n trie.Node) error
	// Clear removes every row from the named table.
	Clear(table string) error
	// CopyAll copies every row from src into dst. Used by Phase B after
	// Clear has emptied dst.
	CopyAll(dst, src string) error
}
