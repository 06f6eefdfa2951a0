package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCell_GetSet(t *testing.T) {
	initial := Snapshot{Commitment: CommitmentState{Soft: ExecutedBlockMetadata{Number: 1}}}
	cell := NewCell(initial)

	sub := cell.Subscribe()
	assert.Equal(t, uint64(1), sub.Get().Commitment.Soft.Number)

	changed := sub.Changed()
	next := Snapshot{Commitment: CommitmentState{Soft: ExecutedBlockMetadata{Number: 2}}}
	cell.Set(next)

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change notification")
	}
	assert.Equal(t, uint64(2), sub.Get().Commitment.Soft.Number)
}

func TestCell_ConcurrentReaders(t *testing.T) {
	cell := NewCell(Snapshot{})
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			sub := cell.Subscribe()
			for j := 0; j < 50; j++ {
				_ = sub.Get()
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 20; i++ {
		cell.Set(Snapshot{Commitment: CommitmentState{Soft: ExecutedBlockMetadata{Number: uint64(i)}}})
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	require.Equal(t, uint64(19), cell.Get().Commitment.Soft.Number)
}
