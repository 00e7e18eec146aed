// Package chain defines the external collaborators the garbage collector
// consumes from the chain store and block indexer: height-to-root
// resolution and the chain-progression events the controller reacts to.
// The chain store and indexer themselves live outside this module.
package chain

import (
	"context"
	"errors"

	"github.com/optakt/account-gc/internal/trie"
)

// ErrTrieUnavailable is returned by Reader when the root or the underlying
// state for a requested height cannot be resolved, for example because the
// store raced with a reorg.
var ErrTrieUnavailable = errors.New("trie unavailable for height")

// Trees exposes the account-state trie handle for one block's world state.
type Trees interface {
	AccountsTrie() (root trie.Hash, store trie.NodeStore)
}

// Reader resolves heights to block state and, through it, to account trie
// roots. It is the chain/trie interface consumed, per the external
// interfaces the garbage collector depends on.
type Reader interface {
	// KeyBlockHashAt resolves a height to its canonical key-block hash.
	KeyBlockHashAt(ctx context.Context, height uint64) (trie.Hash, error)
	// BlockState fetches the world state committed at the given block hash.
	BlockState(ctx context.Context, hash trie.Hash) (Trees, error)
}

// BlockType distinguishes a block that advances consensus height (a key
// block) from one that only bundles transactions (a micro block). Only key
// blocks change the account trie root in a way the GC cares about.
type BlockType uint8

const (
	// KeyBlock advances height and may change the account trie root.
	KeyBlock BlockType = iota
	// MicroBlock bundles transactions without changing the account trie root.
	MicroBlock
)

// String implements fmt.Stringer.
func (t BlockType) String() string {
	switch t {
	case KeyBlock:
		return "key"
	case MicroBlock:
		return "micro"
	default:
		return "invalid"
	}
}

// TopChanged is fired on every chain top update.
type TopChanged struct {
	Type   BlockType
	Height uint64
}
