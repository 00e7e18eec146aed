package reachset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/account-gc/internal/reachset"
	"github.com/optakt/account-gc/internal/trie"
)

func TestSetInsertNew(t *testing.T) {
	s := reachset.New()

	h := trie.Hash{0x01}
	ok := s.InsertNew(h, trie.Node("a"))
	assert.True(t, ok)
	assert.True(t, s.Contains(h))
	assert.Equal(t, 1, s.Size())

	ok = s.InsertNew(h, trie.Node("b"))
	assert.False(t, ok)
	assert.Equal(t, 1, s.Size())
}

func TestSetContainsMissing(t *testing.T) {
	s := reachset.New()
	assert.False(t, s.Contains(trie.Hash{0xff}))
}

func TestSetChecksumOrderIndependent(t *testing.T) {
	a := reachset.New()
	b := reachset.New()

	entries := []struct {
		h trie.Hash
		n trie.Node
	}{
		{trie.Hash{0x01}, trie.Node("one")},
		{trie.Hash{0x02}, trie.Node("two")},
		{trie.Hash{0x03}, trie.Node("three")},
	}

	for _, e := range entries {
		a.InsertNew(e.h, e.n)
	}
	for i := len(entries) - 1; i >= 0; i-- {
		b.InsertNew(entries[i].h, entries[i].n)
	}

	assert.Equal(t, a.Checksum(), b.Checksum())
}

func TestSetChecksumChangesWithContent(t *testing.T) {
	a := reachset.New()
	a.InsertNew(trie.Hash{0x01}, trie.Node("one"))

	b := reachset.New()
	b.InsertNew(trie.Hash{0x01}, trie.Node("one"))
	b.InsertNew(trie.Hash{0x02}, trie.Node("two"))

	assert.NotEqual(t, a.Checksum(), b.Checksum())
}

func TestSetForEach(t *testing.T) {
	s := reachset.New()
	s.InsertNew(trie.Hash{0x01}, trie.Node("one"))
	s.InsertNew(trie.Hash{0x02}, trie.Node("two"))

	seen := make(map[trie.Hash]trie.Node)
	err := s.ForEach(func(h trie.Hash, n trie.Node) error {
		seen[h] = n
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 2)
	assert.Equal(t, trie.Node("one"), seen[trie.Hash{0x01}])
}

func TestSetForEachPropagatesError(t *testing.T) {
	s := reachset.New()
	s.InsertNew(trie.Hash{0x01}, trie.Node("one"))

	sentinel := assert.AnError
	err := s.ForEach(func(h trie.Hash, n trie.Node) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}
