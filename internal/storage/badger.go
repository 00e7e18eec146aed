// Package storage implements the storage backend: a badger/v2-backed
// realization of the swap executor's Storage interface. Tables are modelled
// as single-byte key prefixes in one badger database, and every mutating
// operation runs inside a single synchronous, durable badger transaction,
// following the single-transaction-per-unit-of-work idiom used throughout
// the indexer and storage layers this is adapted from.
package storage

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/optakt/account-gc/internal/swap"
	"github.com/optakt/account-gc/internal/trie"
)

// Storage is a badger-backed implementation of swap.Storage.
type Storage struct {
	db           *badger.DB
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

// Open opens (creating if necessary) a badger database at dir.
func Open(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open storage database: %w", err)
	}

	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("could not initialize compressor: %w", err)
	}
	decompressor, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("could not initialize decompressor: %w", err)
	}

	s := Storage{
		db:           db,
		compressor:   compressor,
		decompressor: decompressor,
	}
	return &s, nil
}

// Close releases the underlying database.
func (s *Storage) Close() error {
	s.decompressor.Close()
	return s.db.Close()
}

// CreateTable validates that name is a known table. Badger has no notion of
// a table beyond the key prefix, so there is nothing to physically create;
// this exists to keep the interface honest about the schema being fixed
// ahead of time, the way the live and staging tables always share one
// schema.
func (s *Storage) CreateTable(ctx context.Context, name string) error {
	_, err := prefixFor(name)
	return err
}

// DeleteTable drops every row under the named table's prefix.
func (s *Storage) DeleteTable(ctx context.Context, name string) error {
	prefix, err := prefixFor(name)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return deletePrefix(txn, []byte{prefix})
	})
}

// IsEmpty reports whether the named table holds no rows. An unknown table
// name is treated as empty rather than an error, since an absent staging
// table and an empty one are handled identically by the swap executor.
func (s *Storage) IsEmpty(ctx context.Context, name string) (bool, error) {
	prefix, err := prefixFor(name)
	if err != nil {
		return true, nil
	}

	empty := true
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte{prefix}
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek([]byte{prefix})
		empty = !it.ValidForPrefix([]byte{prefix})
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("could not check table %q: %w", name, err)
	}
	return empty, nil
}

// FirstKey returns the first key found under the named table's prefix, with
// the prefix byte stripped. Used for diagnostics only.
func (s *Storage) FirstKey(ctx context.Context, name string) ([]byte, bool, error) {
	prefix, err := prefixFor(name)
	if err != nil {
		return nil, false, err
	}

	var key []byte
	var ok bool
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte{prefix}
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek([]byte{prefix})
		if !it.ValidForPrefix([]byte{prefix}) {
			return nil
		}
		k := it.Item().KeyCopy(nil)
		key = k[1:]
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("could not read first key of table %q: %w", name, err)
	}
	return key, ok, nil
}

// ReadNode looks up one row directly, decompressing it back to its original
// bytes. Used for diagnostics and tests; the swap executor itself only ever
// writes and copies rows, never reads individual ones back out.
func (s *Storage) ReadNode(ctx context.Context, table string, h trie.Hash) (trie.Node, bool, error) {
	prefix, err := prefixFor(table)
	if err != nil {
		return nil, false, err
	}

	var out trie.Node
	var ok bool
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeKey(prefix, h))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		raw, err := s.decompressor.DecodeAll(val, nil)
		if err != nil {
			return fmt.Errorf("could not decompress node: %w", err)
		}
		out = trie.Node(raw)
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("could not read node: %w", err)
	}
	return out, ok, nil
}

// WithTransaction runs fn inside a single synchronous, durable badger
// transaction.
func (s *Storage) WithTransaction(ctx context.Context, fn func(swap.Tx) error) error {
	return s.db.Update(func(txn *badger.Txn) error {
		tx := &transaction{storage: s, txn: txn}
		return fn(tx)
	})
}

// deletePrefix collects and deletes every key under prefix. Badger
// iterators may not be mutated while open, so keys are collected first and
// deleted once the iterator is closed.
func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	var keys [][]byte
	it := txn.NewIterator(opts)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		err := txn.Delete(key)
		if err != nil {
			return fmt.Errorf("could not delete key: %w", err)
		}
	}
	return nil
}

// transaction adapts a badger transaction to swap.Tx.
type transaction struct {
	storage *Storage
	txn     *badger.Txn
}

// WriteNode implements swap.Tx.
func (t *transaction) WriteNode(table string, h trie.Hash, n trie.Node) error {
	prefix, err := prefixFor(table)
	if err != nil {
		return err
	}
	val := t.storage.compressor.EncodeAll(n, nil)
	err = t.txn.Set(encodeKey(prefix, h), val)
	if err != nil {
		return fmt.Errorf("could not write node: %w", err)
	}
	return nil
}

// Clear implements swap.Tx.
func (t *transaction) Clear(table string) error {
	prefix, err := prefixFor(table)
	if err != nil {
		return err
	}
	return deletePrefix(t.txn, []byte{prefix})
}

// CopyAll implements swap.Tx.
func (t *transaction) CopyAll(dst, src string) error {
	dstPrefix, err := prefixFor(dst)
	if err != nil {
		return err
	}
	srcPrefix, err := prefixFor(src)
	if err != nil {
		return err
	}

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte{srcPrefix}
	it := t.txn.NewIterator(opts)
	defer it.Close()

	type row struct {
		key []byte
		val []byte
	}
	var rows []row
	for it.Seek([]byte{srcPrefix}); it.ValidForPrefix([]byte{srcPrefix}); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		val, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("could not copy value: %w", err)
		}
		rows = append(rows, row{key: key, val: val})
	}

	for _, r := range rows {
		dstKey := make([]byte, len(r.key))
		copy(dstKey, r.key)
		dstKey[0] = dstPrefix
		err := t.txn.Set(dstKey, r.val)
		if err != nil {
			return fmt.Errorf("could not set copied row: %w", err)
		}
	}
	return nil
}
