package executor

import (
	"testing"

	"github.com/astriaorg/conductor/state"
	"github.com/stretchr/testify/require"
)

func TestNewChannels_SoftOnly(t *testing.T) {
	chans, err := newChannels(state.SoftOnly, state.SessionParameters{})
	require.NoError(t, err)
	require.Equal(t, softOnlyChannelCapacity, cap(chans.soft))
	require.Equal(t, firmChannelCapacity, cap(chans.firm))
}

func TestNewChannels_SoftAndFirm_RequiresLookAhead(t *testing.T) {
	_, err := newChannels(state.SoftAndFirm, state.SessionParameters{DASearchMaxLookAhead: 0})
	require.Error(t, err)

	chans, err := newChannels(state.SoftAndFirm, state.SessionParameters{DASearchMaxLookAhead: 5})
	require.NoError(t, err)
	require.Equal(t, 5, cap(chans.soft))
}

func TestNewChannels_FirmOnly_DefaultsSoftCapacity(t *testing.T) {
	chans, err := newChannels(state.FirmOnly, state.SessionParameters{})
	require.NoError(t, err)
	require.Equal(t, 1, cap(chans.soft))
}
