// Package blocks defines the data contracts that reader tasks (celestia,
// sequencer) deliver to the Executor on the firm and soft block channels.
// The Executor consumes these types; it does not know how they were
// fetched or reconstructed.
package blocks

import "time"

// Header carries the sequencer height and block time common to both
// reconstructed (firm) and filtered (soft) blocks.
type Header struct {
	Height uint64
	Time   time.Time
}

// VoteExtension is one validator's vote extension, as embedded in
// extended commit info: its voting power and its reported prices keyed by
// currency pair id. The exact wire
// encoding is a DA/sequencer codec concern out of scope for this
// package; this is the decoded shape pricefeed.DeriveFromVoteExtensions
// operates on.
type VoteExtension struct {
	ValidatorPower int64
	Prices         map[uint64]uint64 // currency pair id -> price
}

// ExtendedCommitInfo is the optional vote-extension bundle attached to a
// block, from which a price-feed payload can be derived.
type ExtendedCommitInfo struct {
	Votes               []VoteExtension
	IDToCurrencyPair    map[uint64]string
}

// RollupID identifies a rollup on the sequencer.
type RollupID [32]byte

// ReconstructedBlock is what the celestia (firm) reader delivers: a
// sequencer block that has been reconstructed from DA blobs.
type ReconstructedBlock struct {
	BlockHash          [32]byte
	Header             Header
	Transactions       [][]byte
	ExtendedCommitInfo *ExtendedCommitInfo
	DAHeight           uint64
}

// SequencerHeight returns the sequencer height this block was derived from.
func (b *ReconstructedBlock) SequencerHeight() uint64 { return b.Header.Height }

// FilteredSequencerBlock is what the sequencer (soft) reader delivers: a
// live sequencer block filtered down to one rollup's transactions.
type FilteredSequencerBlock struct {
	BlockHash           [32]byte
	Header              Header
	RollupTransactions  map[RollupID][][]byte
	ExtendedCommitInfo  *ExtendedCommitInfo
}

// Height returns the sequencer height of this block.
func (b FilteredSequencerBlock) Height() uint64 { return b.Header.Height }
