package executor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckContract_Accepts(t *testing.T) {
	require.NoError(t, checkContract("firm", 5, 6))
}

func TestCheckContract_RejectsWrongNumber(t *testing.T) {
	err := checkContract("firm", 5, 8)
	require.Error(t, err)
	require.True(t, IsKind(err, KindContract))
}

func TestCheckContract_RejectsAtMaxUint64(t *testing.T) {
	err := checkContract("firm", math.MaxUint64, math.MaxUint64)
	require.Error(t, err)
	require.True(t, IsKind(err, KindContract))
}
