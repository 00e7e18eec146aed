// Package chainevents adapts the node's chain-sync and chain-top
// notification streams onto the GC controller's mailbox. It is a thin
// relay: a single goroutine drains two channels and turns each item into the
// matching Notifier call, the same one-goroutine-per-consumer shape used by
// block-finalization consumers elsewhere in the node.
package chainevents

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/optakt/account-gc/internal/chain"
)

// Notifier is the subset of gc.Controller the adapter drives. Defined here,
// rather than imported, so that this package depends on internal/chain only
// and gc does not need to know chainevents exists.
type Notifier interface {
	OnChainSynced(ctx context.Context)
	OnTopChanged(ctx context.Context, typ chain.BlockType, height uint64)
}

// Source is whatever upstream component publishes chain-sync and chain-top
// notifications. A nil Synced channel is valid: some deployments (replaying
// a fixed range) never emit it, and the adapter just never calls
// OnChainSynced.
type Source struct {
	Synced     <-chan struct{}
	TopChanged <-chan chain.TopChanged
}

// Adapter runs the relay goroutine.
type Adapter struct {
	log      zerolog.Logger
	source   Source
	notifier Notifier
}

// New returns an adapter relaying source onto notifier.
func New(log zerolog.Logger, source Source, notifier Notifier) *Adapter {
	a := Adapter{
		log:      log.With().Str("component", "chainevents").Logger(),
		source:   source,
		notifier: notifier,
	}
	return &a
}

// Run relays notifications until ctx is canceled or the source channels are
// closed. It should be run in its own goroutine; it returns nil once both
// source channels are drained and closed, or ctx.Err() on cancellation.
func (a *Adapter) Run(ctx context.Context) error {
	synced := a.source.Synced
	topChanged := a.source.TopChanged

	for synced != nil || topChanged != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case _, ok := <-synced:
			if !ok {
				synced = nil
				continue
			}
			a.log.Info().Msg("chain sync complete")
			a.notifier.OnChainSynced(ctx)

		case tc, ok := <-topChanged:
			if !ok {
				topChanged = nil
				continue
			}
			a.log.Debug().Stringer("type", tc.Type).Uint64("height", tc.Height).Msg("chain top changed")
			a.notifier.OnTopChanged(ctx, tc.Type, tc.Height)
		}
	}
	return nil
}
