package container

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knoxvfs/knoxvfs/vfserrors"
)

func TestAllocateOneLowestFirst(t *testing.T) {
	sb := NewSuperblock(8, 4096) // block 0 pre-allocated for root
	a := NewAllocator(sb)

	idx, err := a.AllocateOne()
	require.NoError(t, err)
	require.Equal(t, uint64(1), idx)
	require.Equal(t, uint64(6), sb.FreeBlocks())
}

func TestAllocateManyAllOrNothing(t *testing.T) {
	sb := NewSuperblock(4, 4096) // 3 free: 1,2,3
	a := NewAllocator(sb)

	_, err := a.AllocateMany(4)
	require.ErrorIs(t, err, vfserrors.New(vfserrors.OutOfSpace, "", nil))
	require.Equal(t, uint64(3), sb.FreeBlocks()) // unchanged on failure

	blocks, err := a.AllocateMany(3)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, blocks)
	require.Equal(t, uint64(0), sb.FreeBlocks())
}

func TestFreeReplenishesCounter(t *testing.T) {
	sb := NewSuperblock(4, 4096)
	a := NewAllocator(sb)
	idx, err := a.AllocateOne()
	require.NoError(t, err)
	a.Free(idx)
	require.Equal(t, uint64(3), sb.FreeBlocks())
	require.False(t, sb.IsAllocated(idx))
}

func TestOutOfSpaceOnFullVolume(t *testing.T) {
	sb := NewSuperblock(1, 4096) // only block 0, pre-allocated
	a := NewAllocator(sb)
	_, err := a.AllocateOne()
	require.ErrorIs(t, err, vfserrors.New(vfserrors.OutOfSpace, "", nil))
}
