// Package pricefeed derives a per-block oracle payload from vote
// extensions attached to a block's extended commit info, for
// prepending to the rollup transaction list. See executor's
// executable-block assembly.
//
// This is a best-effort feature: a failure here must never block block
// execution, only the caller's decision to skip the prepend.
package pricefeed

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/astriaorg/conductor/blocks"
)

// Data is the per-currency-pair price payload encoded as the first
// transaction in a block when it can be derived.
type Data struct {
	Prices map[string]uint64 // currency pair -> price
}

// Encode serializes Data into an opaque transaction blob. The exact byte
// layout is a sequencerblock codec concern out of scope for this
// package; this is a stable, order-independent encoding sufficient to
// round-trip through the transaction list.
func (d Data) Encode() []byte {
	pairs := make([]string, 0, len(d.Prices))
	for pair := range d.Prices {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)

	buf := make([]byte, 0, len(pairs)*16)
	for _, pair := range pairs {
		lenBuf := make([]byte, 2)
		binary.BigEndian.PutUint16(lenBuf, uint16(len(pair)))
		buf = append(buf, lenBuf...)
		buf = append(buf, pair...)

		priceBuf := make([]byte, 8)
		binary.BigEndian.PutUint64(priceBuf, d.Prices[pair])
		buf = append(buf, priceBuf...)
	}
	return buf
}

// DeriveFromVoteExtensions computes, per currency pair, the median of the
// prices reported for it across validator vote extensions. Only
// extensions that report a price for the pair contribute; validator power
// is not taken into account.
//
// Returns an error if no vote extension reports any price, since an
// empty price feed is never useful to prepend.
func DeriveFromVoteExtensions(info *blocks.ExtendedCommitInfo) (Data, error) {
	if info == nil {
		return Data{}, fmt.Errorf("no extended commit info present")
	}

	byPair := make(map[string][]uint64)
	for _, vote := range info.Votes {
		for id, price := range vote.Prices {
			pair, ok := info.IDToCurrencyPair[id]
			if !ok {
				continue
			}
			byPair[pair] = append(byPair[pair], price)
		}
	}
	if len(byPair) == 0 {
		return Data{}, fmt.Errorf("no currency pair prices reported in vote extensions")
	}

	prices := make(map[string]uint64, len(byPair))
	for pair, values := range byPair {
		prices[pair] = median(values)
	}
	return Data{Prices: prices}, nil
}

func median(values []uint64) uint64 {
	sorted := append([]uint64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
