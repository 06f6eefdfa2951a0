package executor

import (
	"fmt"

	"github.com/astriaorg/conductor/blocks"
	"github.com/astriaorg/conductor/state"
	"github.com/ethereum/go-ethereum/log"
)

// firmChannelCapacity is fixed: firm traffic is DA-paced and inherently
// slow.
const firmChannelCapacity = 16

// softOnlyChannelCapacity is arbitrarily chosen as ~2x the sequencer
// request rate limit.
const softOnlyChannelCapacity = 1024

type channels struct {
	firm chan *blocks.ReconstructedBlock
	soft chan blocks.FilteredSequencerBlock
}

// newChannels builds the firm and soft block channels with capacities
// derived from the commit level and session parameters.
func newChannels(commitLevel state.CommitLevel, params state.SessionParameters) (channels, error) {
	firm := make(chan *blocks.ReconstructedBlock, firmChannelCapacity)
	log.Debug("created firm block channel", "capacity", firmChannelCapacity)

	var softCapacity int
	switch commitLevel {
	case state.FirmOnly:
		softCapacity = int(params.DASearchMaxLookAhead)
		if softCapacity == 0 {
			// Arbitrary value; irrelevant in firm-only since no producer sends on it.
			softCapacity = 1
		}
	case state.SoftAndFirm:
		if params.DASearchMaxLookAhead == 0 {
			return channels{}, fmt.Errorf(
				"da_search_max_look_ahead must be greater than 0 when running in soft-and-firm mode")
		}
		softCapacity = int(params.DASearchMaxLookAhead)
	case state.SoftOnly:
		softCapacity = softOnlyChannelCapacity
	default:
		return channels{}, fmt.Errorf("unknown commit level %v", commitLevel)
	}

	soft := make(chan blocks.FilteredSequencerBlock, softCapacity)
	log.Debug("created soft block channel", "capacity", softCapacity)

	return channels{firm: firm, soft: soft}, nil
}
