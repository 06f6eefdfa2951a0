// Package state tracks the commitment state of an execution session with
// the rollup: the (firm, soft, lowest_da_search_height) triple, the
// session parameters that do not change for the lifetime of the session,
// and the pure height arithmetic built on top of them.
package state

import (
	"errors"
	"fmt"
)

// CommitLevel selects which reader tasks run and which side of the
// commitment state the Executor advances.
type CommitLevel int

const (
	SoftOnly CommitLevel = iota
	FirmOnly
	SoftAndFirm
)

func (c CommitLevel) String() string {
	switch c {
	case SoftOnly:
		return "soft-only"
	case FirmOnly:
		return "firm-only"
	case SoftAndFirm:
		return "soft-and-firm"
	default:
		return "unknown"
	}
}

// IsWithFirm reports whether this commit level runs a DA (firm) reader.
func (c CommitLevel) IsWithFirm() bool {
	return c == FirmOnly || c == SoftAndFirm
}

// IsWithSoft reports whether this commit level runs a sequencer (soft) reader.
func (c CommitLevel) IsWithSoft() bool {
	return c == SoftOnly || c == SoftAndFirm
}

// ExecutedBlockMetadata is the block information returned by the rollup
// after an ExecuteBlock or UpdateCommitmentState RPC.
type ExecutedBlockMetadata struct {
	Number             uint64
	Hash               string
	ParentHash         string
	Timestamp          int64 // unix seconds, matches the sequencer block it derives from
	SequencerBlockHash string // optional; empty if not set
}

// CommitmentState is the (firm, soft, lowest_da_search_height) triple.
//
// Invariants of a session's commitment state (NewFromExecutionSession
// checks invariant 1 for the initial state; this package checks none of
// the others):
//  1. Soft.Number >= Firm.Number.
//  2. Neither Soft.Number nor Firm.Number ever decreases.
//  3. Firm is always a prefix of the chain defined by Soft.
//  4. LowestDASearchHeight is monotonically non-decreasing.
type CommitmentState struct {
	Firm                  ExecutedBlockMetadata
	Soft                  ExecutedBlockMetadata
	LowestDASearchHeight  uint64
}

// SessionParameters are immutable for the lifetime of an execution session.
type SessionParameters struct {
	RollupID                 [32]byte
	RollupStartBlockNumber   uint64 // first rollup block number this session executes, >= 1
	RollupEndBlockNumber     uint64 // inclusive stop height; 0 means no upper bound
	SequencerChainID         string
	DAChainID                string
	SequencerFirstBlockHeight uint64
	DASearchMaxLookAhead     uint64
}

// HasStopHeight reports whether RollupEndBlockNumber is configured.
func (p SessionParameters) HasStopHeight() bool {
	return p.RollupEndBlockNumber != 0
}

var (
	// ErrInvalidSession is returned by NewFromExecutionSession when the
	// rollup-provided session parameters or initial commitment state
	// violate an invariant.
	ErrInvalidSession = errors.New("invalid execution session")
)

// Snapshot is the immutable value published through a Cell: the session
// parameters plus the current commitment state.
type Snapshot struct {
	Params SessionParameters
	Commitment CommitmentState
}

// NewFromExecutionSession validates session parameters and the initial
// commitment state returned by CreateExecutionSession, and constructs the
// first Snapshot of a session.
//
// Fails with ErrInvalidSession if:
//   - RollupStartBlockNumber == 0.
//   - the firm or soft block in the initial commitment has a number below
//     RollupStartBlockNumber - 1.
//   - Soft.Number < Firm.Number.
//   - commitLevel requires firm commitments and DASearchMaxLookAhead == 0.
func NewFromExecutionSession(params SessionParameters, commitment CommitmentState, commitLevel CommitLevel) (Snapshot, error) {
	if params.RollupStartBlockNumber == 0 {
		return Snapshot{}, fmt.Errorf("%w: rollup_start_block_number must be >= 1", ErrInvalidSession)
	}
	floor := params.RollupStartBlockNumber - 1
	if commitment.Firm.Number < floor {
		return Snapshot{}, fmt.Errorf("%w: initial firm block number %d is below rollup_start_block_number-1 (%d)",
			ErrInvalidSession, commitment.Firm.Number, floor)
	}
	if commitment.Soft.Number < floor {
		return Snapshot{}, fmt.Errorf("%w: initial soft block number %d is below rollup_start_block_number-1 (%d)",
			ErrInvalidSession, commitment.Soft.Number, floor)
	}
	if commitment.Soft.Number < commitment.Firm.Number {
		return Snapshot{}, fmt.Errorf("%w: soft block number %d is below firm block number %d",
			ErrInvalidSession, commitment.Soft.Number, commitment.Firm.Number)
	}
	if commitLevel.IsWithFirm() && params.DASearchMaxLookAhead == 0 {
		return Snapshot{}, fmt.Errorf("%w: da_search_max_look_ahead must be > 0 when running with firm commitments", ErrInvalidSession)
	}

	return Snapshot{
		Params:     params,
		Commitment: commitment,
	}, nil
}

// MapSequencerHeightToRollupNumber maps a sequencer height to the rollup
// block number it corresponds to: rollup_start + (seq_h - seq_first).
//
// Fails if seq_h < seq_first (the mapping is only defined going forward
// from the session's first sequencer height) or on overflow.
func MapSequencerHeightToRollupNumber(seqFirst, rollupStart, seqHeight uint64) (uint64, error) {
	if seqHeight < seqFirst {
		return 0, fmt.Errorf("sequencer height %d is below sequencer_first_block_height %d", seqHeight, seqFirst)
	}
	delta := seqHeight - seqFirst
	number := rollupStart + delta
	if number < rollupStart {
		return 0, fmt.Errorf("overflow mapping sequencer height %d to a rollup number", seqHeight)
	}
	return number, nil
}

// NextExpectedFirmSequencerHeight returns the sequencer height at which the
// next firm block is expected.
func (s Snapshot) NextExpectedFirmSequencerHeight() uint64 {
	return s.Params.SequencerFirstBlockHeight + (s.Commitment.Firm.Number - s.Params.RollupStartBlockNumber) + 1
}

// NextExpectedSoftSequencerHeight returns the sequencer height at which the
// next soft block is expected.
func (s Snapshot) NextExpectedSoftSequencerHeight() uint64 {
	return s.Params.SequencerFirstBlockHeight + (s.Commitment.Soft.Number - s.Params.RollupStartBlockNumber) + 1
}

// HasFirmReachedStopHeight reports whether the firm commitment has reached
// the configured (non-zero) stop height.
func (s Snapshot) HasFirmReachedStopHeight() bool {
	return s.Params.HasStopHeight() && s.Commitment.Firm.Number == s.Params.RollupEndBlockNumber
}

// HasSoftReachedStopHeight reports whether the soft commitment has reached
// the configured (non-zero) stop height.
func (s Snapshot) HasSoftReachedStopHeight() bool {
	return s.Params.HasStopHeight() && s.Commitment.Soft.Number == s.Params.RollupEndBlockNumber
}

// IsSpreadTooLarge reports whether the soft stream has gotten too far ahead
// of the firm stream, using saturating subtraction. Always false when
// commitLevel does not run a firm reader.
func (s Snapshot) IsSpreadTooLarge(commitLevel CommitLevel) bool {
	if !commitLevel.IsWithFirm() {
		return false
	}
	nextFirm := s.NextExpectedFirmSequencerHeight()
	nextSoft := s.NextExpectedSoftSequencerHeight()
	var spread uint64
	if nextSoft > nextFirm {
		spread = nextSoft - nextFirm
	}
	return spread >= s.Params.DASearchMaxLookAhead
}
