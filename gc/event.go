package gc

import (
	"github.com/optakt/account-gc/internal/chain"
	"github.com/optakt/account-gc/internal/reachset"
)

// event is the controller's mailbox message type. Events are processed one
// at a time, in arrival order.
type event interface {
	isEvent()
}

// eventChainSynced fires once when initial sync completes.
type eventChainSynced struct{}

func (eventChainSynced) isEvent() {}

// eventTopChanged fires on every chain top update.
type eventTopChanged struct {
	typ    chain.BlockType
	height uint64
}

func (eventTopChanged) isEvent() {}

// eventScanDone is the background worker's single completion message,
// carrying the owned reachable set on success. err is set if the scan
// failed (e.g. TrieUnavailable), in which case r is nil.
type eventScanDone struct {
	base uint64
	top  uint64
	r    *reachset.Set
	err  error
}

func (eventScanDone) isEvent() {}

// eventQuiesce is the synchronous quiescence call, linearized with
// TopChanged by virtue of both arriving on the same mailbox channel.
type eventQuiesce struct {
	reply chan quiesceResult
}

func (eventQuiesce) isEvent() {}

// quiesceResult is delivered back to the caller of MaybeGarbageCollect.
type quiesceResult struct {
	outcome Outcome
	err     error
}
