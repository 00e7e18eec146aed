package gc

import (
	"context"
	"time"

	"github.com/optakt/account-gc/internal/chain"
)

// dispatch applies one event to the controller's current state. It is the
// single place state changes happen; everything above it (Run, the public
// On*/Maybe* methods) only ever gets events onto or results off of the
// mailbox.
func (c *Controller) dispatch(ctx context.Context, ev event) {
	switch c.state.Status {
	case StatusIdle:
		c.dispatchIdle(ctx, ev)
	case StatusScanning:
		c.dispatchScanning(ctx, ev)
	case StatusReady:
		c.dispatchReady(ctx, ev)
	case StatusSwapping:
		c.dispatchSwapping(ctx, ev)
	}
	c.recordMetrics()
}

func (c *Controller) dispatchIdle(ctx context.Context, ev event) {
	switch e := ev.(type) {
	case eventChainSynced:
		c.state.Synced = true

	case eventTopChanged:
		if !c.cfg.Enabled || !c.state.Synced {
			return
		}
		if e.height%c.cfg.Interval != 0 {
			return
		}
		base := uint64(0)
		if e.height > c.cfg.History {
			base = e.height - c.cfg.History
		}
		c.state = State{
			Status: StatusScanning,
			Synced: true,
			Base:   base,
			Top:    e.height,
		}
		c.spawnScan(ctx, base, e.height)

	case eventQuiesce:
		c.declineQuiesce(e, "idle, nothing to stage")
	}
}

func (c *Controller) dispatchScanning(ctx context.Context, ev event) {
	switch e := ev.(type) {
	case eventScanDone:
		if e.err != nil {
			c.log.Warn().Err(e.err).Uint64("base", e.base).Uint64("top", e.top).
				Msg("background scan failed, staying idle until next interval boundary")
			c.state = idleState(true)
			return
		}
		c.log.Info().Uint64("base", e.base).Uint64("top", e.top).Int("size", e.r.Size()).
			Msg("background scan complete, adopting reachable set")
		c.state = State{
			Status:     StatusReady,
			Synced:     true,
			LastHeight: e.top,
			TopHeight:  e.top,
			TopType:    chain.KeyBlock,
			Reachable:  e.r,
		}

	case eventQuiesce:
		c.declineQuiesce(e, "scan in flight")

	default:
		// TopChanged and anything else arriving mid-scan is ignored; the
		// scan in flight already covers the window that matters, and the
		// controller catches up incrementally once it reaches Ready.
	}
}

func (c *Controller) dispatchReady(ctx context.Context, ev event) {
	switch e := ev.(type) {
	case eventTopChanged:
		c.handleReadyTopChanged(ctx, e)

	case eventQuiesce:
		c.handleReadyQuiesce(ctx, e)
	}
}

func (c *Controller) handleReadyTopChanged(ctx context.Context, e eventTopChanged) {
	if e.typ == chain.MicroBlock {
		c.state.TopType = chain.MicroBlock
		return
	}

	c.state.TopType = chain.KeyBlock
	c.state.TopHeight = e.height

	// A key block more than History below the last confirmed height is a
	// reorg deep enough that the current reachable set's base may no
	// longer cover everything the new top requires. Rather than union in
	// extra hashes on top of a possibly-too-narrow base, start over with a
	// fresh full scan based at the new top.
	if e.height < c.state.LastHeight && c.state.LastHeight-e.height > c.cfg.History {
		base := uint64(0)
		if e.height > c.cfg.History {
			base = e.height - c.cfg.History
		}
		c.log.Warn().Uint64("height", e.height).Uint64("last_height", c.state.LastHeight).
			Msg("deep reorg detected, discarding reachable set and rescanning")
		c.state = State{
			Status: StatusScanning,
			Synced: true,
			Base:   base,
			Top:    e.height,
		}
		c.spawnScan(ctx, base, e.height)
		return
	}

	if e.height > c.state.LastHeight {
		err := c.timeScan(func() error {
			return c.scanner.RangeScan(ctx, c.state.LastHeight, e.height, c.state.Reachable)
		})
		if err != nil {
			c.log.Warn().Err(err).Uint64("from", c.state.LastHeight).Uint64("to", e.height).
				Msg("range scan failed, retaining last confirmed height")
			return
		}
		c.state.LastHeight = e.height
		return
	}

	// height <= LastHeight: a repeat or regression of the top, most likely
	// a minor fork. A delta scan at this height merges any newly
	// introduced subtries without re-walking unchanged ones, and never
	// removes hashes, so it is safe to apply even though it does not
	// change LastHeight.
	err := c.timeScan(func() error {
		return c.scanner.DeltaScan(ctx, e.height, c.state.Reachable)
	})
	if err != nil {
		c.log.Warn().Err(err).Uint64("height", e.height).Msg("delta scan failed")
	}
}

func (c *Controller) handleReadyQuiesce(ctx context.Context, e eventQuiesce) {
	if c.state.TopType != chain.KeyBlock {
		c.declineQuiesce(e, "top block is a micro block")
		return
	}

	if c.state.TopHeight > c.state.LastHeight {
		err := c.scanner.RangeScan(ctx, c.state.LastHeight, c.state.TopHeight, c.state.Reachable)
		if err != nil {
			c.log.Warn().Err(err).Msg("could not close reachability gap before quiesce, declining")
			c.replyQuiesce(e, OutcomeNop, err)
			return
		}
		c.state.LastHeight = c.state.TopHeight
	}

	count, err := c.swapper.Stage(ctx, c.state.Reachable)
	if err != nil {
		c.log.Error().Err(err).Msg("stage failed, remaining in ready")
		c.replyQuiesce(e, OutcomeNop, err)
		return
	}
	c.log.Info().Int("rows", count).Msg("staged reachable set")

	err = c.supervisor.TerminateConductor(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("could not terminate conductor")
		c.replyQuiesce(e, OutcomeNop, err)
		return
	}
	err = c.supervisor.RestartProcess(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("could not trigger restart")
		c.replyQuiesce(e, OutcomeNop, err)
		return
	}

	if c.metrics != nil {
		c.metrics.IncSwaps()
	}
	c.state = State{Status: StatusSwapping}
	c.replyQuiesce(e, OutcomeRestarting, nil)
}

func (c *Controller) dispatchSwapping(ctx context.Context, ev event) {
	if e, ok := ev.(eventQuiesce); ok {
		c.declineQuiesce(e, "already swapping")
	}
	// Swapping is terminal; any other event is ignored.
}

// declineQuiesce replies Nop to a quiesce call that cannot be honored in the
// current state. The caller only ever sees OutcomeNop with a nil error;
// ErrUnexpectedQuiesce is logged here for operators, not surfaced to
// MaybeGarbageCollect, per its doc comment.
func (c *Controller) declineQuiesce(e eventQuiesce, reason string) {
	c.log.Debug().Str("reason", reason).Err(ErrUnexpectedQuiesce).Msg("declining quiesce call")
	c.replyQuiesce(e, OutcomeNop, nil)
}

func (c *Controller) replyQuiesce(e eventQuiesce, outcome Outcome, err error) {
	select {
	case e.reply <- quiesceResult{outcome: outcome, err: err}:
	default:
	}
}

// spawnScan launches the background full-scan-plus-range-scan worker and
// joins it through a single completion message. The worker is not tracked
// in the controller's wait group: a shutdown simply abandons it and
// discards its partial set, rather than joining it.
func (c *Controller) spawnScan(ctx context.Context, base, top uint64) {
	go func() {
		start := time.Now()
		r, err := c.scanner.FullScan(ctx, base)
		if err == nil {
			err = c.scanner.RangeScan(ctx, base, top, r)
		}
		if c.metrics != nil {
			c.metrics.ObserveScanDuration(time.Since(start))
		}

		done := eventScanDone{base: base, top: top, r: r, err: err}
		if err != nil {
			done.r = nil
		}

		select {
		case c.mailbox <- done:
		case <-c.done:
		}
	}()
}
