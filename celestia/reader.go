// Package celestia implements the firm-block reader: it watches the
// Celestia data-availability layer for blobs belonging to this rollup's
// namespace, reconstructs sequencer blocks from them, and delivers them
// on the firm block channel in strictly increasing sequencer height.
//
// Byte-level DA blob decoding is out of scope for this module; Fetch
// below is the seam a real implementation would replace.
package celestia

import (
	"context"
	"time"

	"github.com/astriaorg/conductor/blocks"
	"github.com/astriaorg/conductor/state"
	"github.com/ethereum/go-ethereum/log"
)

// Fetcher retrieves the next reconstructed block at or above
// lowestSearchHeight, searching at most maxLookAhead DA heights. It
// returns (nil, nil) if nothing new is available yet.
type Fetcher interface {
	Fetch(ctx context.Context, lowestSearchHeight, maxLookAhead uint64) (*blocks.ReconstructedBlock, error)
}

// Builder constructs a Reader from its explicit collaborators, the way
// NewExecutionServiceServerV1 takes a shared container.
type Builder struct {
	Fetcher     Fetcher
	BlockTime   time.Duration
	FirmBlocks  chan<- *blocks.ReconstructedBlock
	RollupState state.Subscription
}

func (b Builder) Build() *Reader {
	return &Reader{
		fetcher:     b.Fetcher,
		blockTime:   b.BlockTime,
		firmBlocks:  b.FirmBlocks,
		rollupState: b.RollupState,
	}
}

// Reader runs until ctx is cancelled or the stop height is reached
// (observed via rollupState), closing FirmBlocks on clean exit.
type Reader struct {
	fetcher     Fetcher
	blockTime   time.Duration
	firmBlocks  chan<- *blocks.ReconstructedBlock
	rollupState state.Subscription
}

// Run polls Celestia on a ticker and sends each reconstructed block on
// the firm channel, honoring backpressure (the channel send blocks when
// the Executor is behind; that is intentional).
func (r *Reader) Run(ctx context.Context) error {
	defer close(r.firmBlocks)

	ticker := time.NewTicker(r.blockTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap := r.rollupState.Get()
			if snap.HasFirmReachedStopHeight() {
				log.Info("firm commitment reached stop height; celestia reader exiting")
				return nil
			}

			block, err := r.fetcher.Fetch(ctx, snap.Commitment.LowestDASearchHeight, snap.Params.DASearchMaxLookAhead)
			if err != nil {
				if ctx.Err() != nil {
					// the fetch error is just cancellation surfacing, not a
					// real failure.
					return nil
				}
				return err
			}
			if block == nil {
				continue
			}

			select {
			case r.firmBlocks <- block:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
