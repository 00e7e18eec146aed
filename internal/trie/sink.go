package trie

// Sink adapters used by the scan engine (internal/scan). store_hash and
// store_unseen_hash from the design: the first is used by a full scan and
// always continues, the second is used by a delta scan and stops as soon as
// it hits a hash the reachable set already has, which is what keeps delta
// work proportional to the symmetric difference between consecutive tries
// rather than to the size of the trie.

// Inserter is the subset of the reachable-set store the sinks need.
type Inserter interface {
	InsertNew(h Hash, n Node) bool
}

// StoreHash unconditionally inserts every visited node and keeps descending.
// Used by the full scan.
func StoreHash(r Inserter) Sink {
	return SinkFunc(func(h Hash, n Node) Decision {
		r.InsertNew(h, n)
		return Continue
	})
}

// StoreUnseenHash inserts a visited node and descends into it only if it was
// not already present in the reachable set; otherwise the whole subtree
// rooted at h is known to be captured already and is pruned. Used by delta
// scans.
func StoreUnseenHash(r Inserter) Sink {
	return SinkFunc(func(h Hash, n Node) Decision {
		if !r.InsertNew(h, n) {
			return Stop
		}
		return Continue
	})
}
