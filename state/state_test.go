package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseParams() SessionParameters {
	return SessionParameters{
		RollupStartBlockNumber:    10,
		SequencerFirstBlockHeight: 100,
		DASearchMaxLookAhead:      16,
	}
}

func TestNewFromExecutionSession_RejectsZeroStart(t *testing.T) {
	params := baseParams()
	params.RollupStartBlockNumber = 0
	_, err := NewFromExecutionSession(params, CommitmentState{}, SoftOnly)
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestNewFromExecutionSession_RejectsBlockBelowFloor(t *testing.T) {
	params := baseParams()
	commitment := CommitmentState{
		Firm: ExecutedBlockMetadata{Number: 8},
		Soft: ExecutedBlockMetadata{Number: 8},
	}
	_, err := NewFromExecutionSession(params, commitment, SoftOnly)
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestNewFromExecutionSession_RejectsSoftBelowFirm(t *testing.T) {
	params := baseParams()
	commitment := CommitmentState{
		Firm: ExecutedBlockMetadata{Number: 12},
		Soft: ExecutedBlockMetadata{Number: 11},
	}
	_, err := NewFromExecutionSession(params, commitment, SoftOnly)
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestNewFromExecutionSession_RequiresLookAheadWithFirm(t *testing.T) {
	params := baseParams()
	params.DASearchMaxLookAhead = 0
	commitment := CommitmentState{
		Firm: ExecutedBlockMetadata{Number: 9},
		Soft: ExecutedBlockMetadata{Number: 9},
	}
	_, err := NewFromExecutionSession(params, commitment, SoftAndFirm)
	require.ErrorIs(t, err, ErrInvalidSession)

	// soft-only never requires look ahead.
	_, err = NewFromExecutionSession(params, commitment, SoftOnly)
	require.NoError(t, err)
}

func TestNewFromExecutionSession_Valid(t *testing.T) {
	params := baseParams()
	commitment := CommitmentState{
		Firm: ExecutedBlockMetadata{Number: 9},
		Soft: ExecutedBlockMetadata{Number: 9},
	}
	snap, err := NewFromExecutionSession(params, commitment, SoftAndFirm)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), snap.NextExpectedFirmSequencerHeight())
	assert.Equal(t, uint64(100), snap.NextExpectedSoftSequencerHeight())
}

func TestMapSequencerHeightToRollupNumber(t *testing.T) {
	n, err := MapSequencerHeightToRollupNumber(100, 10, 102)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), n)

	_, err = MapSequencerHeightToRollupNumber(100, 10, 99)
	require.Error(t, err)
}

func TestStopHeight(t *testing.T) {
	params := baseParams()
	params.RollupEndBlockNumber = 12
	snap := Snapshot{
		Params: params,
		Commitment: CommitmentState{
			Firm: ExecutedBlockMetadata{Number: 12},
			Soft: ExecutedBlockMetadata{Number: 11},
		},
	}
	assert.True(t, snap.HasFirmReachedStopHeight())
	assert.False(t, snap.HasSoftReachedStopHeight())

	params.RollupEndBlockNumber = 0
	snap.Params = params
	assert.False(t, snap.HasFirmReachedStopHeight())
}

func TestIsSpreadTooLarge(t *testing.T) {
	params := baseParams()
	params.DASearchMaxLookAhead = 3

	snap := Snapshot{
		Params: params,
		Commitment: CommitmentState{
			Firm: ExecutedBlockMetadata{Number: 10},
			Soft: ExecutedBlockMetadata{Number: 12},
		},
	}
	// next_firm=101, next_soft=103, spread=2 < 3
	assert.False(t, snap.IsSpreadTooLarge(SoftAndFirm))

	snap.Commitment.Soft.Number = 13
	// next_firm=101, next_soft=104, spread=3 >= 3
	assert.True(t, snap.IsSpreadTooLarge(SoftAndFirm))

	// never too large without a firm reader
	assert.False(t, snap.IsSpreadTooLarge(SoftOnly))
}
