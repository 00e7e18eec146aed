// Package trie defines the contract the account-state Merkle-Patricia Trie
// must honor towards the garbage collector. The trie implementation itself
// lives outside this module; this package only carries the shapes the GC
// needs to talk about it.
package trie

import "context"

// HashSize is the width of a node hash in bytes.
const HashSize = 32

// Hash identifies one trie node by the digest of its serialized form.
// Equality is byte equality.
type Hash [HashSize]byte

// Node is the MPT's own serialized form of one internal node. The garbage
// collector never interprets it; it only copies hash/node pairs around.
type Node []byte

// NodeStore resolves the raw bytes backing a trie, used by the external MPT
// implementation during a reachability walk; the GC never calls it directly.
type NodeStore interface {
	Node(h Hash) (Node, error)
}

// Decision is returned by a Sink for every node visited during a
// reachability traversal.
type Decision uint8

const (
	// Continue tells the trie to keep descending into the node's children.
	Continue Decision = iota
	// Stop tells the trie to prune the subtree rooted at the visited node;
	// it has already been captured by a previous pass.
	Stop
)

// Sink receives one callback per node visited during a traversal.
type Sink interface {
	Visit(h Hash, n Node) Decision
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(h Hash, n Node) Decision

// Visit implements Sink.
func (f SinkFunc) Visit(h Hash, n Node) Decision {
	return f(h, n)
}

// Visitor is the external contract the MPT must honor: given a root and a
// sink, it performs a reachability traversal from the root and invokes the
// sink exactly once per reachable node, honoring Continue/Stop.
type Visitor interface {
	VisitReachable(ctx context.Context, root Hash, store NodeStore, sink Sink) error
}
