package scan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/account-gc/internal/chain"
	"github.com/optakt/account-gc/internal/fixture"
	"github.com/optakt/account-gc/internal/scan"
)

func TestFullScanWalksEveryReachableNode(t *testing.T) {
	tr := fixture.NewTrie()
	leafA := tr.Leaf(fixture.Hash("leafA"), "leafA-body")
	leafB := tr.Leaf(fixture.Hash("leafB"), "leafB-body")
	root := tr.Branch(fixture.Hash("root7"), "root-body", leafA, leafB)

	ch := fixture.NewChain(tr)
	ch.SetRoot(7, root)

	engine := scan.New(ch, tr)
	r, err := engine.FullScan(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 3, r.Size())
	assert.True(t, r.Contains(root))
	assert.True(t, r.Contains(leafA))
	assert.True(t, r.Contains(leafB))
}

func TestFullScanTrieUnavailable(t *testing.T) {
	tr := fixture.NewTrie()
	ch := fixture.NewChain(tr)

	engine := scan.New(ch, tr)
	_, err := engine.FullScan(context.Background(), 42)
	assert.ErrorIs(t, err, chain.ErrTrieUnavailable)
}

func TestDeltaScanPrunesAlreadySeenSubtrees(t *testing.T) {
	tr := fixture.NewTrie()
	shared := tr.Leaf(fixture.Hash("shared"), "shared-body")
	onlyNew := tr.Leaf(fixture.Hash("onlyNew"), "new-body")

	rootA := tr.Branch(fixture.Hash("rootA"), "rootA-body", shared)
	rootB := tr.Branch(fixture.Hash("rootB"), "rootB-body", shared, onlyNew)

	ch := fixture.NewChain(tr)
	ch.SetRoot(1, rootA)
	ch.SetRoot(2, rootB)

	engine := scan.New(ch, tr)
	r, err := engine.FullScan(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, r.Size()) // rootA + shared

	err = engine.DeltaScan(context.Background(), 2, r)
	require.NoError(t, err)

	assert.True(t, r.Contains(rootB))
	assert.True(t, r.Contains(onlyNew))
	assert.True(t, r.Contains(shared))
	assert.Equal(t, 4, r.Size())
}

func TestDeltaScanLeavesSetUntouchedOnFailure(t *testing.T) {
	tr := fixture.NewTrie()
	leaf := tr.Leaf(fixture.Hash("leaf"), "leaf-body")
	root := tr.Branch(fixture.Hash("root1"), "root-body", leaf)

	ch := fixture.NewChain(tr)
	ch.SetRoot(1, root)

	engine := scan.New(ch, tr)
	r, err := engine.FullScan(context.Background(), 1)
	require.NoError(t, err)
	before := r.Checksum()

	err = engine.DeltaScan(context.Background(), 99, r)
	assert.ErrorIs(t, err, chain.ErrTrieUnavailable)
	assert.Equal(t, before, r.Checksum())
}

func TestRangeScanIsNoOpWhenHiNotAfterLo(t *testing.T) {
	tr := fixture.NewTrie()
	ch := fixture.NewChain(tr)
	engine := scan.New(ch, tr)

	err := engine.RangeScan(context.Background(), 10, 10, nil)
	assert.NoError(t, err)
	err = engine.RangeScan(context.Background(), 10, 5, nil)
	assert.NoError(t, err)
}

func TestRangeScanIsOrderIndependent(t *testing.T) {
	tr := fixture.NewTrie()
	l1 := tr.Leaf(fixture.Hash("l1"), "l1")
	l2 := tr.Leaf(fixture.Hash("l2"), "l2")
	l3 := tr.Leaf(fixture.Hash("l3"), "l3")

	r1 := tr.Branch(fixture.Hash("r1"), "r1", l1)
	r2 := tr.Branch(fixture.Hash("r2"), "r2", l1, l2)
	r3 := tr.Branch(fixture.Hash("r3"), "r3", l2, l3)

	ch := fixture.NewChain(tr)
	ch.SetRoot(1, r1)
	ch.SetRoot(2, r2)
	ch.SetRoot(3, r3)

	engine := scan.New(ch, tr)

	forward, err := engine.FullScan(context.Background(), 1)
	require.NoError(t, err)
	err = engine.RangeScan(context.Background(), 1, 3, forward)
	require.NoError(t, err)

	// Build the same coverage by applying the deltas in a different order:
	// union over the window is commutative, so the end result should match
	// regardless of which height is folded in first.
	reversed, err := engine.FullScan(context.Background(), 1)
	require.NoError(t, err)
	err = engine.DeltaScan(context.Background(), 3, reversed)
	require.NoError(t, err)
	err = engine.DeltaScan(context.Background(), 2, reversed)
	require.NoError(t, err)

	assert.Equal(t, forward.Checksum(), reversed.Checksum())
}
