package gc

import (
	"github.com/optakt/account-gc/internal/chain"
	"github.com/optakt/account-gc/internal/reachset"
)

// Status names the controller's position in the state machine. It is the
// tag of an explicit tagged-variant state: a single State struct carries
// every status's fields, and only the fields relevant to the current
// status are meaningful.
type Status uint8

const (
	// StatusIdle is either pre-sync, or synced and waiting for the next
	// interval boundary.
	StatusIdle Status = iota
	// StatusScanning is a background full scan plus initial range scan in
	// progress.
	StatusScanning
	// StatusReady is a live, incrementally maintained reachable set.
	StatusReady
	// StatusSwapping is quiescent and terminal: the reachable set is being
	// persisted ahead of a restart.
	StatusSwapping
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusScanning:
		return "scanning"
	case StatusReady:
		return "ready"
	case StatusSwapping:
		return "swapping"
	default:
		return "invalid"
	}
}

// State is the controller's current position plus whatever data that
// position carries. Only fields relevant to the current Status are
// meaningful.
type State struct {
	Status Status

	// Idle, Scanning, Ready: whether initial chain sync has completed.
	Synced bool

	// Scanning: the window the in-flight scan is covering.
	Base uint64
	Top  uint64

	// Ready: the highest height whose reachable coverage is confirmed, the
	// highest height actually observed via TopChanged (which can be ahead
	// of LastHeight if a prior scan failed and left a gap), the block type
	// of that most recently observed top, and the live reachable set.
	LastHeight uint64
	TopHeight  uint64
	TopType    chain.BlockType
	Reachable  *reachset.Set
}

// idleState returns a fresh Idle state, used at controller construction and
// whenever a background scan fails to produce a reachable set.
func idleState(synced bool) State {
	return State{
		Status: StatusIdle,
		Synced: synced,
	}
}
