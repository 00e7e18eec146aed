// Package fixture is a test-only in-memory double for the account-state
// trie and chain. The real trie and chain implementations live
// outside this module and never interpret node bytes; this fixture plays
// both roles for tests, keeping its own out-of-band map of which hash
// points at which children — knowledge the production Visitor has and this
// module never needs.
package fixture

import (
	"context"
	"fmt"

	"github.com/optakt/account-gc/internal/chain"
	"github.com/optakt/account-gc/internal/trie"
)

// Trie is a hand-built Merkle-Patricia trie: every node's bytes are
// meaningless to the module under test, but the fixture also tracks which
// hashes are reachable from which, so it can walk itself like the real
// trie would.
type Trie struct {
	nodes    map[trie.Hash]trie.Node
	children map[trie.Hash][]trie.Hash
}

// NewTrie returns an empty trie.
func NewTrie() *Trie {
	return &Trie{
		nodes:    make(map[trie.Hash]trie.Node),
		children: make(map[trie.Hash][]trie.Hash),
	}
}

// Leaf adds a childless node and returns its hash.
func (t *Trie) Leaf(h trie.Hash, body string) trie.Hash {
	t.nodes[h] = trie.Node(body)
	return h
}

// Branch adds a node with the given children and returns its hash.
func (t *Trie) Branch(h trie.Hash, body string, children ...trie.Hash) trie.Hash {
	t.nodes[h] = trie.Node(body)
	t.children[h] = children
	return h
}

// Node implements trie.NodeStore.
func (t *Trie) Node(h trie.Hash) (trie.Node, error) {
	n, ok := t.nodes[h]
	if !ok {
		return nil, fmt.Errorf("unknown node %x", h)
	}
	return n, nil
}

// VisitReachable implements trie.Visitor by walking the fixture's explicit
// child edges depth-first from root, calling sink.Visit on every node it
// descends into, stopping a branch as soon as the sink says Stop.
func (t *Trie) VisitReachable(ctx context.Context, root trie.Hash, store trie.NodeStore, sink trie.Sink) error {
	return t.walk(ctx, root, sink)
}

func (t *Trie) walk(ctx context.Context, h trie.Hash, sink trie.Sink) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	n, err := t.Node(h)
	if err != nil {
		return err
	}

	if sink.Visit(h, n) == trie.Stop {
		return nil
	}

	for _, child := range t.children[h] {
		err := t.walk(ctx, child, sink)
		if err != nil {
			return err
		}
	}
	return nil
}

// Hash builds a fixture hash out of a short label, left-padded with zero
// bytes, so tests can write fixture.Hash("a") instead of spelling out 32
// bytes by hand.
func Hash(label string) trie.Hash {
	var h trie.Hash
	copy(h[HashSize-len(label):], label)
	return h
}

// HashSize mirrors trie.HashSize for Hash's padding arithmetic.
const HashSize = trie.HashSize

// Chain is a fake chain.Reader backed by a height-indexed map of roots, all
// resolved against one shared node store, so tries at different heights can
// overlap.
type Chain struct {
	roots map[uint64]trie.Hash
	store trie.NodeStore
	keyBlockHashes map[uint64]trie.Hash
}

// NewChain returns a chain fixture backed by a single shared node store.
func NewChain(store trie.NodeStore) *Chain {
	return &Chain{
		roots:          make(map[uint64]trie.Hash),
		store:          store,
		keyBlockHashes: make(map[uint64]trie.Hash),
	}
}

// SetRoot records the accounts-trie root at a given height.
func (c *Chain) SetRoot(height uint64, root trie.Hash) {
	c.roots[height] = root
	c.keyBlockHashes[height] = root
}

// KeyBlockHashAt implements chain.Reader. The fixture uses the trie root
// itself as a stand-in block hash, since nothing outside this package ever
// inspects it.
func (c *Chain) KeyBlockHashAt(ctx context.Context, height uint64) (trie.Hash, error) {
	h, ok := c.keyBlockHashes[height]
	if !ok {
		return trie.Hash{}, fmt.Errorf("%w: no block at height %d", chain.ErrTrieUnavailable, height)
	}
	return h, nil
}

// BlockState implements chain.Reader.
func (c *Chain) BlockState(ctx context.Context, blockHash trie.Hash) (chain.Trees, error) {
	return chainTrees{root: blockHash, store: c.store}, nil
}

type chainTrees struct {
	root  trie.Hash
	store trie.NodeStore
}

func (t chainTrees) AccountsTrie() (trie.Hash, trie.NodeStore) {
	return t.root, t.store
}
