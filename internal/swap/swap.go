// Package swap implements the swap executor: it stages the reachable
// set into a durable side table before a controlled restart (Phase A), and
// promotes that side table into the live account-state table at the next
// startup (Phase B).
//
// The controlled restart is the serialization barrier between the two
// phases: Phase A must be durable on disk before the process exits, and
// Phase B must complete before anything else touches the live table. Taken
// together, no reader ever observes a half-swapped state.
package swap

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/optakt/account-gc/internal/reachset"
	"github.com/optakt/account-gc/internal/trie"
)

// Table names. LiveTable is the authoritative account-state table; Staging
// is the durable side table used to stage a pruned copy of it across a
// restart.
const (
	LiveTable    = "account_state_live"
	StagingTable = "account_state_staging"
)

// ErrStageFailed is returned when the Phase A staging transaction aborts.
var ErrStageFailed = errors.New("stage transaction failed")

// ErrPromoteFailed is returned when the Phase B promotion transaction
// aborts. It is fatal: the node must not proceed with an account table in
// an unknown state.
var ErrPromoteFailed = errors.New("promote transaction failed")

// Executor runs both swap phases against a Storage backend.
type Executor struct {
	storage Storage
}

// New returns a swap executor backed by the given storage.
func New(storage Storage) *Executor {
	return &Executor{storage: storage}
}

// Stage is Phase A: create the staging table and, in a single synchronous,
// durable transaction, write every (H, N) pair from r into it. If any write
// fails, the transaction is aborted, the live table is left untouched, and
// ErrStageFailed is returned.
func (e *Executor) Stage(ctx context.Context, r *reachset.Set) (int, error) {
	err := e.storage.CreateTable(ctx, StagingTable)
	if err != nil {
		return 0, fmt.Errorf("could not create staging table: %w", err)
	}

	count := 0
	err = e.storage.WithTransaction(ctx, func(tx Tx) error {
		return r.ForEach(func(h trie.Hash, n trie.Node) error {
			err := tx.WriteNode(StagingTable, h, n)
			if err != nil {
				return err
			}
			count++
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStageFailed, err)
	}

	return count, nil
}

// Promote is Phase B: run at startup, before anything else reads account
// state. If the staging table is absent or empty, it does nothing. If
// present and non-empty, it clears the live table and copies every row from
// staging into it inside a single synchronous transaction, then drops the
// staging table. Staging is not dropped until the copy commits, so a crash
// mid-Promote is recovered simply by calling Promote again on the next
// boot.
func (e *Executor) Promote(ctx context.Context) error {
	// IsEmpty reports true for a table that does not exist at all, so an
	// absent staging table and an empty one take the same no-op path here.
	empty, err := e.storage.IsEmpty(ctx, StagingTable)
	if err != nil {
		return fmt.Errorf("could not check staging table: %w", err)
	}
	if empty {
		return nil
	}

	promote := func() error {
		return e.storage.WithTransaction(ctx, func(tx Tx) error {
			err := tx.Clear(LiveTable)
			if err != nil {
				return fmt.Errorf("could not clear live table: %w", err)
			}
			err = tx.CopyAll(LiveTable, StagingTable)
			if err != nil {
				return fmt.Errorf("could not copy staging into live: %w", err)
			}
			return nil
		})
	}

	err = promote()
	if err != nil {
		// The transaction aborted atomically, so the live table was never
		// actually left half-cleared; one retry recovers the common case
		// of a transient storage error. If the retry also fails, both
		// errors are relevant to an operator deciding whether the node can
		// safely restart again.
		retryErr := promote()
		if retryErr != nil {
			combined := multierror.Append(fmt.Errorf("promote attempt failed: %w", err), fmt.Errorf("retry also failed: %w", retryErr))
			return fmt.Errorf("%w: %v", ErrPromoteFailed, combined)
		}
	}

	err = e.storage.DeleteTable(ctx, StagingTable)
	if err != nil {
		// The promote itself already committed; a leftover staging table
		// is harmless and will simply be promoted again (a no-op, since
		// live now equals staging) on the next boot.
		return fmt.Errorf("could not drop staging table after promote: %w", err)
	}

	return nil
}
