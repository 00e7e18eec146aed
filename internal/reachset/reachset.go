// Package reachset implements the reachable-set store: an in-memory
// mapping from node hash to node bytes, populated during a scan and
// consumed once during a swap.
//
// Ownership is single-writer, single-reader by construction: the background
// scan worker is the sole writer until it hands the set off to the
// controller; from that point on, only the controller mutates it. The mutex
// here exists to make that handoff and the final ForEach iteration safe to
// reason about even though, by design, only one goroutine ever calls in at
// a time.
package reachset

import (
	"sync"

	"github.com/OneOfOne/xxhash"

	"github.com/optakt/account-gc/internal/trie"
)

// Set is a concurrent-safe mapping from node hash to node bytes.
type Set struct {
	mu    sync.Mutex
	nodes map[trie.Hash]trie.Node
}

// New returns a new, empty reachable set.
func New() *Set {
	return &Set{
		nodes: make(map[trie.Hash]trie.Node),
	}
}

// InsertNew inserts the given hash/node pair if the hash is not already
// present. It returns false without modifying the set if the hash was
// already present.
func (s *Set) InsertNew(h trie.Hash, n trie.Node) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.nodes[h]
	if ok {
		return false
	}
	s.nodes[h] = n
	return true
}

// Contains reports whether the given hash is present in the set.
func (s *Set) Contains(h trie.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.nodes[h]
	return ok
}

// Size returns the number of hash/node pairs currently in the set.
func (s *Set) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.nodes)
}

// Checksum returns an order-independent content checksum over every
// hash/node pair in the set, obtained by XOR-combining a per-entry xxhash
// digest. Two sets built by scanning the same heights in different orders
// produce the same checksum, since XOR-combination doesn't care about visit
// order; used for logging and for tests asserting idempotence without
// comparing whole maps.
func (s *Set) Checksum() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum uint64
	for h, n := range s.nodes {
		d := xxhash.New64()
		d.Write(h[:])
		d.Write(n)
		sum ^= d.Sum64()
	}
	return sum
}

// ForEach calls fn once for every hash/node pair in the set, holding the
// lock for the duration of the iteration. It is used exactly once, by the
// swap executor's stage phase.
func (s *Set) ForEach(fn func(h trie.Hash, n trie.Node) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for h, n := range s.nodes {
		err := fn(h, n)
		if err != nil {
			return err
		}
	}
	return nil
}
