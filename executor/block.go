package executor

import (
	"time"

	"github.com/astriaorg/conductor/blocks"
	"github.com/astriaorg/conductor/pricefeed"
	"github.com/ethereum/go-ethereum/log"
)

// ExecutableBlock is the normalized form of a soft or firm block, ready
// for exactly one ExecuteBlock call.
type ExecutableBlock struct {
	Hash         [32]byte
	Height       uint64 // sequencer height
	Timestamp    time.Time
	Transactions [][]byte
}

// fromReconstructed builds an ExecutableBlock from a firm (DA-reconstructed)
// block. Transactions are carried verbatim; a price-feed payload is
// prepended when derivable.
func fromReconstructed(block *blocks.ReconstructedBlock) ExecutableBlock {
	txs := prependPriceFeedIfPresent(block.Transactions, block.ExtendedCommitInfo)
	return ExecutableBlock{
		Hash:         block.BlockHash,
		Height:       block.Header.Height,
		Timestamp:    block.Header.Time,
		Transactions: txs,
	}
}

// fromSequencer builds an ExecutableBlock from a soft (live sequencer)
// block, extracting this rollup's transactions by ID. Absent entries
// yield an empty transaction list, never an error.
func fromSequencer(block blocks.FilteredSequencerBlock, rollupID blocks.RollupID) ExecutableBlock {
	txs := block.RollupTransactions[rollupID]
	txs = prependPriceFeedIfPresent(txs, block.ExtendedCommitInfo)
	return ExecutableBlock{
		Hash:         block.BlockHash,
		Height:       block.Header.Height,
		Timestamp:    block.Header.Time,
		Transactions: txs,
	}
}

// prependPriceFeedIfPresent derives a price-feed payload from extended
// commit info, if present, and prepends it to txs. Any failure to derive
// the payload is logged and execution proceeds without it: this feature
// must never block progress.
func prependPriceFeedIfPresent(txs [][]byte, info *blocks.ExtendedCommitInfo) [][]byte {
	if info == nil {
		return txs
	}
	data, err := pricefeed.DeriveFromVoteExtensions(info)
	if err != nil {
		log.Warn("failed to derive price feed from vote extensions; executing without it", "err", err)
		return txs
	}
	out := make([][]byte, 0, len(txs)+1)
	out = append(out, data.Encode())
	out = append(out, txs...)
	return out
}
