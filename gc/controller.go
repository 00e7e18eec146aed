// Package gc implements the GC controller: the state machine that
// decides when to collect, drives the scan engine across a sliding window
// of trie roots, maintains the reachable set incrementally as new blocks
// arrive, and hands off to the swap executor at a quiescent point.
//
// The controller is single-threaded cooperative: it owns a mailbox channel
// and processes exactly one event at a time.
// Long work (the initial full scan) is delegated to a background worker
// joined through a single completion message; everything else — delta
// scans, range scans, the stage phase of a swap — runs inline on the
// goroutine that owns the mailbox, so that no other event can interleave
// with it.
package gc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/optakt/account-gc/internal/chain"
	"github.com/optakt/account-gc/internal/scan"
	"github.com/optakt/account-gc/internal/swap"
)

// Controller drives the GC state machine from chain events and the
// conductor's quiescence call.
type Controller struct {
	log        zerolog.Logger
	cfg        Config
	scanner    *scan.Engine
	swapper    *swap.Executor
	supervisor Supervisor
	metrics    Metrics

	mailbox chan event
	done    chan struct{}
	wg      sync.WaitGroup

	state State
}

// New returns a GC controller in its initial Idle state. metrics may be
// nil.
func New(log zerolog.Logger, cfg Config, scanner *scan.Engine, swapper *swap.Executor, supervisor Supervisor, metrics Metrics) (*Controller, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := Controller{
		log:        log.With().Str("component", "gc").Logger(),
		cfg:        cfg,
		scanner:    scanner,
		swapper:    swapper,
		supervisor: supervisor,
		metrics:    metrics,
		mailbox:    make(chan event),
		done:       make(chan struct{}),
		state:      idleState(false),
	}

	return &c, nil
}

// Run processes events from the mailbox until the context is canceled or
// Stop is called. It should be run in its own goroutine.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case ev := <-c.mailbox:
			c.dispatch(ctx, ev)
		}
	}
}

// Stop tears down the controller. A scan already in flight is abandoned
// along with its partial reachable set; the controller does not expose
// cancellation for it.
func (c *Controller) Stop(ctx context.Context) error {
	close(c.done)
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// OnChainSynced feeds a chain-sync-done event into the mailbox. Called by
// the external-event adapter.
func (c *Controller) OnChainSynced(ctx context.Context) {
	c.send(ctx, eventChainSynced{})
}

// OnTopChanged feeds a top-changed event into the mailbox. Called by the
// external-event adapter.
func (c *Controller) OnTopChanged(ctx context.Context, typ chain.BlockType, height uint64) {
	c.send(ctx, eventTopChanged{typ: typ, height: height})
}

func (c *Controller) send(ctx context.Context, ev event) {
	select {
	case c.mailbox <- ev:
	case <-ctx.Done():
	case <-c.done:
	}
}

// MaybeGarbageCollect is the quiescence call: it asks the controller,
// synchronously, whether now is a valid moment to stage a swap. The caller
// (the conductor) must only invoke this when no TopChanged is in flight for
// a later height.
func (c *Controller) MaybeGarbageCollect(ctx context.Context) (Outcome, error) {
	reply := make(chan quiesceResult, 1)
	select {
	case c.mailbox <- eventQuiesce{reply: reply}:
	case <-ctx.Done():
		return OutcomeNop, ctx.Err()
	case <-c.done:
		return OutcomeNop, fmt.Errorf("controller stopped")
	}

	select {
	case res := <-reply:
		return res.outcome, res.err
	case <-ctx.Done():
		return OutcomeNop, ctx.Err()
	}
}

// MaybeSwapNodes is the startup hook: it promotes the staging table
// into the live table if one is present, before anything else in the node
// reads account state. It does not go through the mailbox: at the point it
// is called, the controller has not started processing chain events yet.
func (c *Controller) MaybeSwapNodes(ctx context.Context) error {
	return c.swapper.Promote(ctx)
}

// recordMetrics pushes the current state's observable quantities to the
// metrics collector, if one was configured.
func (c *Controller) recordMetrics() {
	if c.metrics == nil {
		return
	}
	if c.state.Reachable != nil {
		c.metrics.SetReachableSize(c.state.Reachable.Size())
	}
	if c.state.Status == StatusReady {
		c.metrics.SetLastHeight(c.state.LastHeight)
	}
}

func (c *Controller) timeScan(fn func() error) error {
	start := time.Now()
	err := fn()
	if c.metrics != nil {
		c.metrics.ObserveScanDuration(time.Since(start))
	}
	return err
}
