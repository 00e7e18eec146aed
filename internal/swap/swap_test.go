package swap_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/account-gc/internal/reachset"
	"github.com/optakt/account-gc/internal/swap"
	"github.com/optakt/account-gc/internal/trie"
)

// memStorage is an in-memory stand-in for a swap.Storage backend. It has no
// notion of durability across process restarts — Stage/Promote are tested
// within a single process here — but it implements the same all-or-nothing
// transaction contract: a transaction function that returns an error leaves
// no trace of its writes.
type memStorage struct {
	mu       sync.Mutex
	tables   map[string]map[trie.Hash]trie.Node
	failNext int // number of upcoming WithTransaction calls that should fail
}

func newMemStorage() *memStorage {
	return &memStorage{tables: make(map[string]map[trie.Hash]trie.Node)}
}

func (m *memStorage) CreateTable(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables[name] == nil {
		m.tables[name] = make(map[trie.Hash]trie.Node)
	}
	return nil
}

func (m *memStorage) DeleteTable(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, name)
	return nil
}

func (m *memStorage) IsEmpty(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[name]) == 0, nil
}

func (m *memStorage) FirstKey(ctx context.Context, name string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h := range m.tables[name] {
		return h[:], true, nil
	}
	return nil, false, nil
}

func (m *memStorage) WithTransaction(ctx context.Context, fn func(swap.Tx) error) error {
	m.mu.Lock()
	shouldFail := m.failNext > 0
	if m.failNext > 0 {
		m.failNext--
	}
	// Snapshot so the transaction can be rolled back on failure or on an
	// injected error without disturbing the committed state.
	snapshot := make(map[string]map[trie.Hash]trie.Node, len(m.tables))
	for name, rows := range m.tables {
		cp := make(map[trie.Hash]trie.Node, len(rows))
		for h, n := range rows {
			cp[h] = n
		}
		snapshot[name] = cp
	}
	m.mu.Unlock()

	tx := &memTx{storage: m, tables: snapshot}

	if shouldFail {
		return errors.New("injected storage failure")
	}

	err := fn(tx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.tables = tx.tables
	m.mu.Unlock()
	return nil
}

type memTx struct {
	storage *memStorage
	tables  map[string]map[trie.Hash]trie.Node
}

func (tx *memTx) WriteNode(table string, h trie.Hash, n trie.Node) error {
	if tx.tables[table] == nil {
		tx.tables[table] = make(map[trie.Hash]trie.Node)
	}
	tx.tables[table][h] = n
	return nil
}

func (tx *memTx) Clear(table string) error {
	tx.tables[table] = make(map[trie.Hash]trie.Node)
	return nil
}

func (tx *memTx) CopyAll(dst, src string) error {
	if tx.tables[dst] == nil {
		tx.tables[dst] = make(map[trie.Hash]trie.Node)
	}
	for h, n := range tx.tables[src] {
		tx.tables[dst][h] = n
	}
	return nil
}

func buildSet(entries ...trie.Hash) *reachset.Set {
	r := reachset.New()
	for i, h := range entries {
		r.InsertNew(h, trie.Node{byte(i)})
	}
	return r
}

func TestStageWritesEveryEntryAndReportsCount(t *testing.T) {
	storage := newMemStorage()
	e := swap.New(storage)

	r := buildSet(trie.Hash{0x01}, trie.Hash{0x02}, trie.Hash{0x03})
	count, err := e.Stage(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	empty, err := storage.IsEmpty(context.Background(), swap.StagingTable)
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestStageWrapsErrStageFailedOnTransactionFailure(t *testing.T) {
	storage := newMemStorage()
	storage.failNext = 1
	e := swap.New(storage)

	r := buildSet(trie.Hash{0x01})
	_, err := e.Stage(context.Background(), r)
	assert.ErrorIs(t, err, swap.ErrStageFailed)
}

func TestPromoteIsNoOpWhenStagingAbsent(t *testing.T) {
	storage := newMemStorage()
	e := swap.New(storage)

	err := e.Promote(context.Background())
	require.NoError(t, err)
}

func TestPromoteClearsAndRefillsLiveTable(t *testing.T) {
	storage := newMemStorage()
	e := swap.New(storage)

	stale := trie.Hash{0xaa}
	err := storage.WithTransaction(context.Background(), func(tx swap.Tx) error {
		return tx.WriteNode(swap.LiveTable, stale, trie.Node("stale"))
	})
	require.NoError(t, err)

	r := buildSet(trie.Hash{0x01}, trie.Hash{0x02})
	_, err = e.Stage(context.Background(), r)
	require.NoError(t, err)

	err = e.Promote(context.Background())
	require.NoError(t, err)

	empty, err := storage.IsEmpty(context.Background(), swap.StagingTable)
	require.NoError(t, err)
	assert.True(t, empty, "staging table should be dropped after a successful promote")

	storage.mu.Lock()
	live := storage.tables[swap.LiveTable]
	storage.mu.Unlock()
	assert.Len(t, live, 2)
	assert.NotContains(t, live, stale)
}

func TestPromoteRetriesOnceBeforeFailing(t *testing.T) {
	storage := newMemStorage()
	e := swap.New(storage)

	r := buildSet(trie.Hash{0x01})
	_, err := e.Stage(context.Background(), r)
	require.NoError(t, err)

	storage.failNext = 1 // the promote transaction fails once, then the retry succeeds
	err = e.Promote(context.Background())
	require.NoError(t, err)

	empty, err := storage.IsEmpty(context.Background(), swap.StagingTable)
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestPromoteAggregatesBothFailuresWithMultierror(t *testing.T) {
	storage := newMemStorage()
	e := swap.New(storage)

	r := buildSet(trie.Hash{0x01})
	_, err := e.Stage(context.Background(), r)
	require.NoError(t, err)

	storage.failNext = 2 // both the primary attempt and the retry fail
	err = e.Promote(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, swap.ErrPromoteFailed)
	assert.Contains(t, err.Error(), "promote attempt failed")
	assert.Contains(t, err.Error(), "retry also failed")

	// Staging must not be dropped: Promote is safe to call again on the
	// next boot.
	empty, err := storage.IsEmpty(context.Background(), swap.StagingTable)
	require.NoError(t, err)
	assert.False(t, empty)
}
