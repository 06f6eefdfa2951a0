package executor

import (
	"testing"
	"time"

	"github.com/astriaorg/conductor/blocks"
	"github.com/stretchr/testify/require"
)

func TestFromSequencer_ExtractsRollupTransactions(t *testing.T) {
	rollupID := blocks.RollupID{1}
	block := blocks.FilteredSequencerBlock{
		BlockHash: [32]byte{9},
		Header:    blocks.Header{Height: 42, Time: time.Unix(1000, 0)},
		RollupTransactions: map[blocks.RollupID][][]byte{
			rollupID: {[]byte("tx1"), []byte("tx2")},
		},
	}

	out := fromSequencer(block, rollupID)
	require.Equal(t, uint64(42), out.Height)
	require.Equal(t, [32]byte{9}, out.Hash)
	require.Equal(t, [][]byte{[]byte("tx1"), []byte("tx2")}, out.Transactions)
}

func TestFromSequencer_UnknownRollupYieldsNoTransactions(t *testing.T) {
	block := blocks.FilteredSequencerBlock{
		Header:             blocks.Header{Height: 42},
		RollupTransactions: map[blocks.RollupID][][]byte{},
	}
	out := fromSequencer(block, blocks.RollupID{1})
	require.Empty(t, out.Transactions)
}

func TestFromReconstructed_CarriesTransactionsVerbatim(t *testing.T) {
	block := &blocks.ReconstructedBlock{
		BlockHash:    [32]byte{3},
		Header:       blocks.Header{Height: 7, Time: time.Unix(500, 0)},
		Transactions: [][]byte{[]byte("tx")},
		DAHeight:     12,
	}
	out := fromReconstructed(block)
	require.Equal(t, uint64(7), out.Height)
	require.Equal(t, [][]byte{[]byte("tx")}, out.Transactions)
}

func TestPrependPriceFeedIfPresent_NoInfoReturnsOriginal(t *testing.T) {
	txs := [][]byte{[]byte("tx")}
	out := prependPriceFeedIfPresent(txs, nil)
	require.Equal(t, txs, out)
}

func TestPrependPriceFeedIfPresent_DerivesAndPrepends(t *testing.T) {
	info := &blocks.ExtendedCommitInfo{
		Votes: []blocks.VoteExtension{
			{ValidatorPower: 1, Prices: map[uint64]uint64{1: 100}},
		},
		IDToCurrencyPair: map[uint64]string{1: "BTC/USD"},
	}
	txs := [][]byte{[]byte("tx")}
	out := prependPriceFeedIfPresent(txs, info)
	require.Len(t, out, 2)
	require.Equal(t, []byte("tx"), out[1])
}
