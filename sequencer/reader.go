// Package sequencer implements the soft-block reader: it subscribes to
// the live sequencer's block stream, filters each block down to this
// rollup's transactions, and delivers them on the soft block channel in
// strictly increasing sequencer height.
package sequencer

import (
	"context"
	"io"
	"time"

	"github.com/astriaorg/conductor/blocks"
	"github.com/astriaorg/conductor/state"
	"github.com/ethereum/go-ethereum/log"
)

// BlockStream is the server-side streaming RPC client this reader
// consumes. A real implementation is a generated gRPC stream client;
// the stream transport itself is out of scope for this module.
type BlockStream interface {
	// Recv returns the next filtered sequencer block, io.EOF when the
	// stream ends cleanly, or another error otherwise.
	Recv() (*blocks.FilteredSequencerBlock, error)
}

// StreamOpener opens a new BlockStream for a given rollup ID, e.g. by
// dialing the sequencer's gRPC endpoint.
type StreamOpener interface {
	Open(ctx context.Context, rollupID blocks.RollupID) (BlockStream, error)
}

// Builder constructs a Reader.
type Builder struct {
	Opener      StreamOpener
	RollupID    blocks.RollupID
	ReconnectDelay time.Duration
	SoftBlocks  chan<- blocks.FilteredSequencerBlock
	RollupState state.Subscription
}

func (b Builder) Build() *Reader {
	delay := b.ReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}
	return &Reader{
		opener:         b.Opener,
		rollupID:       b.RollupID,
		reconnectDelay: delay,
		softBlocks:     b.SoftBlocks,
		rollupState:    b.RollupState,
	}
}

// Reader runs until ctx is cancelled or the stop height is reached,
// closing SoftBlocks on clean exit.
type Reader struct {
	opener         StreamOpener
	rollupID       blocks.RollupID
	reconnectDelay time.Duration
	softBlocks     chan<- blocks.FilteredSequencerBlock
	rollupState    state.Subscription
}

func (r *Reader) Run(ctx context.Context) error {
	defer close(r.softBlocks)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if r.rollupState.Get().HasSoftReachedStopHeight() {
			log.Info("soft commitment reached stop height; sequencer reader exiting")
			return nil
		}

		stream, err := r.opener.Open(ctx, r.rollupID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := r.drain(ctx, stream); err != nil {
			if err == io.EOF {
				// server closed the stream cleanly; reconnect unless we're done.
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(r.reconnectDelay):
					continue
				}
			}
			if ctx.Err() != nil {
				// the stream error is just cancellation surfacing through
				// Recv, not a real failure.
				return nil
			}
			return err
		}
		return nil
	}
}

// drain forwards blocks from stream until it ends or ctx is cancelled.
func (r *Reader) drain(ctx context.Context, stream BlockStream) error {
	for {
		block, err := stream.Recv()
		if err != nil {
			return err
		}

		select {
		case r.softBlocks <- *block:
		case <-ctx.Done():
			return nil
		}
	}
}
