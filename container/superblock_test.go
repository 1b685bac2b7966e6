package container

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSuperblockRoundTrip(t *testing.T) {
	sb := NewSuperblock(64, 4096)
	require.Equal(t, uint64(64), sb.BlockCount())
	require.True(t, sb.IsAllocated(0)) // root folder block
	require.Equal(t, uint64(63), sb.FreeBlocks())

	raw := sb.ToBytes()
	restored, err := SuperblockFromBytes(raw)
	require.NoError(t, err)
	require.Equal(t, sb.BlockCount(), restored.BlockCount())
	require.Equal(t, sb.BlockSize(), restored.BlockSize())
	require.Equal(t, sb.FreeBlocks(), restored.FreeBlocks())
	require.Equal(t, sb.CountAllocated(), restored.CountAllocated())
}

func TestSuperblockTruncatedBytes(t *testing.T) {
	_, err := SuperblockFromBytes([]byte{1, 2, 3})
	require.Error(t, err)
}
