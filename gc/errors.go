package gc

import "errors"

// ErrUnexpectedQuiesce marks a Quiesce call that arrived in a state, or at a
// top block type, that cannot honor it. It is never returned to the caller
// of MaybeGarbageCollect — the exposed operation replies Nop instead — but
// is logged so an operator can see why a quiescence attempt was turned
// down.
var ErrUnexpectedQuiesce = errors.New("quiesce call cannot be honored in current state")

// Outcome is the result of a quiescence call.
type Outcome uint8

const (
	// OutcomeNop means no swap was triggered and the controller has not
	// entered Swapping. A quiesce that fails after closing the gap up to the
	// observed top may still have advanced LastHeight.
	OutcomeNop Outcome = iota
	// OutcomeRestarting means Phase A succeeded and the controller has
	// asked the supervisor to terminate the conductor and restart the
	// process.
	OutcomeRestarting
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeNop:
		return "nop"
	case OutcomeRestarting:
		return "ok-restarting"
	default:
		return "invalid"
	}
}
