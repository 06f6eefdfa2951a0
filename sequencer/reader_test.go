package sequencer

import (
	"context"
	"testing"
	"time"

	"github.com/astriaorg/conductor/blocks"
	"github.com/astriaorg/conductor/state"
	"github.com/stretchr/testify/require"
)

func newTestSubscription(snap state.Snapshot) state.Subscription {
	return state.NewCell(snap).Subscribe()
}

func TestReader_ForwardsBlocksInOrder(t *testing.T) {
	stream := &mockServerSideStream{items: []*blocks.FilteredSequencerBlock{
		filteredBlock(100),
		filteredBlock(101),
		filteredBlock(102),
	}}
	soft := make(chan blocks.FilteredSequencerBlock, 8)

	reader := Builder{
		Opener:      &mockOpener{stream: stream},
		SoftBlocks:  soft,
		RollupState: newTestSubscription(state.Snapshot{}),
	}.Build()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- reader.Run(ctx) }()

	for _, h := range []uint64{100, 101, 102} {
		select {
		case b := <-soft:
			require.Equal(t, h, b.Height())
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for block at height %d", h)
		}
	}

	// stream is exhausted (io.EOF); reader reconnects on a delay, so cancel now.
	cancel()
	<-done
}

func TestReader_ExitsOnStopHeight(t *testing.T) {
	params := state.SessionParameters{RollupEndBlockNumber: 5}
	snap := state.Snapshot{
		Params:     params,
		Commitment: state.CommitmentState{Soft: state.ExecutedBlockMetadata{Number: 5}},
	}
	soft := make(chan blocks.FilteredSequencerBlock)

	reader := Builder{
		Opener:      &mockOpener{stream: &mockServerSideStream{}},
		SoftBlocks:  soft,
		RollupState: newTestSubscription(snap),
	}.Build()

	done := make(chan error, 1)
	go func() { done <- reader.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reader did not exit when soft commitment already at stop height")
	}
}
