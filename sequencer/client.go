package sequencer

import (
	"context"
	"fmt"

	"github.com/astriaorg/conductor/blocks"
)

// TendermintOpener is a StreamOpener backed by a CometBFT/Tendermint
// event subscription against the sequencer node: it subscribes to block
// events over the sequencer's RPC websocket and filters each block down
// to one rollup's transactions. That wire protocol and the
// block-filtering codec are out of scope for this module — this type is
// the seam a full deployment completes.
type TendermintOpener struct {
	RPCURL string
}

// NewTendermintOpener builds a TendermintOpener against a sequencer
// node's RPC endpoint.
func NewTendermintOpener(rpcURL string) *TendermintOpener {
	return &TendermintOpener{RPCURL: rpcURL}
}

func (o *TendermintOpener) Open(ctx context.Context, rollupID blocks.RollupID) (BlockStream, error) {
	return nil, fmt.Errorf("sequencer event subscription and block filtering is not implemented by this client")
}
