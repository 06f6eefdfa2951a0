package sequencer

import (
	"context"
	"io"
	"time"

	"github.com/astriaorg/conductor/blocks"
)

// mockServerSideStream is a minimal server-side streaming mock, built the
// way a generic MockServerSideStreaming[K] helper would be but narrowed
// to this reader's Recv-only BlockStream contract.
type mockServerSideStream struct {
	items []*blocks.FilteredSequencerBlock
	next  int
}

func (m *mockServerSideStream) Recv() (*blocks.FilteredSequencerBlock, error) {
	if m.next >= len(m.items) {
		return nil, io.EOF
	}
	item := m.items[m.next]
	m.next++
	return item, nil
}

type mockOpener struct {
	stream *mockServerSideStream
}

func (m *mockOpener) Open(ctx context.Context, rollupID blocks.RollupID) (BlockStream, error) {
	return m.stream, nil
}

func filteredBlock(height uint64) *blocks.FilteredSequencerBlock {
	return &blocks.FilteredSequencerBlock{
		Header: blocks.Header{Height: height, Time: time.Unix(int64(height), 0)},
	}
}
