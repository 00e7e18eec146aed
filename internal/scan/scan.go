// Package scan implements the scan engine: full scans at a base height
// and incremental delta scans for successor heights, and the range scan
// that chains delta scans across a window of heights.
package scan

import (
	"context"
	"fmt"

	"github.com/optakt/account-gc/internal/chain"
	"github.com/optakt/account-gc/internal/reachset"
	"github.com/optakt/account-gc/internal/trie"
)

// Engine resolves trie roots through a chain.Reader and walks them through a
// trie.Visitor, feeding the reachable set with C2's sinks.
type Engine struct {
	reader  chain.Reader
	visitor trie.Visitor
}

// New returns a scan engine backed by the given chain reader and trie
// visitor.
func New(reader chain.Reader, visitor trie.Visitor) *Engine {
	return &Engine{
		reader:  reader,
		visitor: visitor,
	}
}

// rootAt resolves the account trie root and node store committed at the
// given height.
func (e *Engine) rootAt(ctx context.Context, height uint64) (trie.Hash, trie.NodeStore, error) {
	blockHash, err := e.reader.KeyBlockHashAt(ctx, height)
	if err != nil {
		return trie.Hash{}, nil, fmt.Errorf("could not resolve key block at height %d: %w", height, chain.ErrTrieUnavailable)
	}
	trees, err := e.reader.BlockState(ctx, blockHash)
	if err != nil {
		return trie.Hash{}, nil, fmt.Errorf("could not resolve block state at height %d: %w", height, chain.ErrTrieUnavailable)
	}
	root, store := trees.AccountsTrie()
	return root, store, nil
}

// FullScan acquires the trie root at the given height and traverses it with
// the store_hash sink into a fresh reachable set. Cost is proportional to
// the size of the trie at that height.
func (e *Engine) FullScan(ctx context.Context, height uint64) (*reachset.Set, error) {
	root, store, err := e.rootAt(ctx, height)
	if err != nil {
		return nil, err
	}

	r := reachset.New()
	err = e.visitor.VisitReachable(ctx, root, store, trie.StoreHash(r))
	if err != nil {
		return nil, fmt.Errorf("could not walk trie at height %d: %w", height, err)
	}
	return r, nil
}

// DeltaScan acquires the trie root at the given height and traverses it with
// the store_unseen_hash sink into r. Any subtree whose root hash is already
// in r is skipped entirely, so cost is proportional to the symmetric
// difference between this trie and the ones already captured in r, not to
// the size of the trie itself.
//
// On TrieUnavailable, r is left untouched; the caller is responsible for
// preserving its prior progress and retrying later.
func (e *Engine) DeltaScan(ctx context.Context, height uint64, r *reachset.Set) error {
	root, store, err := e.rootAt(ctx, height)
	if err != nil {
		return err
	}

	err = e.visitor.VisitReachable(ctx, root, store, trie.StoreUnseenHash(r))
	if err != nil {
		return fmt.Errorf("could not walk trie at height %d: %w", height, err)
	}
	return nil
}

// RangeScan walks heights lo+1, lo+2, ..., hi in ascending order, applying a
// delta scan at each into r. If hi <= lo the range is empty and the call is
// a no-op. Correctness does not depend on the order heights are walked in,
// since the union over the window is commutative; ascending order only
// matters for cost, since earlier deltas shrink later ones.
func (e *Engine) RangeScan(ctx context.Context, lo, hi uint64, r *reachset.Set) error {
	if hi <= lo {
		return nil
	}
	for h := lo + 1; h <= hi; h++ {
		err := e.DeltaScan(ctx, h, r)
		if err != nil {
			return err
		}
	}
	return nil
}
