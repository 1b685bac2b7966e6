package container

import (
	"github.com/knoxvfs/knoxvfs/vfserrors"
)

// Allocator hands out and reclaims block indices from a Superblock. It
// holds no lock of its own: callers (the Image facade) serialize
// access to it under a single coarse lock.
type Allocator struct {
	sb *Superblock
}

// NewAllocator wraps sb for allocation.
func NewAllocator(sb *Superblock) *Allocator {
	return &Allocator{sb: sb}
}

// AllocateOne reserves and returns the lowest-indexed free block, or
// OutOfSpace if the volume is full.
func (a *Allocator) AllocateOne() (uint64, error) {
	idx, ok := a.sb.bits.NextClear(0)
	if !ok {
		return 0, vfserrors.New(vfserrors.OutOfSpace, "AllocateOne", nil)
	}
	a.sb.bits.Set(idx)
	a.sb.free--
	return idx, nil
}

// AllocateMany reserves k free blocks, all or nothing: if fewer than k
// are available, no block is marked in use and OutOfSpace is returned.
func (a *Allocator) AllocateMany(k uint64) ([]uint64, error) {
	if k == 0 {
		return nil, nil
	}
	if a.sb.free < k {
		return nil, vfserrors.New(vfserrors.OutOfSpace, "AllocateMany", nil)
	}
	out := make([]uint64, 0, k)
	cursor := uint64(0)
	for uint64(len(out)) < k {
		idx, ok := a.sb.bits.NextClear(cursor)
		if !ok {
			// free counter disagreed with the bitmap; undo and fail.
			for _, b := range out {
				a.sb.bits.Clear(b)
			}
			a.sb.free += uint64(len(out))
			return nil, vfserrors.New(vfserrors.OutOfSpace, "AllocateMany", nil)
		}
		a.sb.bits.Set(idx)
		out = append(out, idx)
		cursor = idx + 1
	}
	a.sb.free -= k
	return out, nil
}

// Free marks block b unused again. Freeing an already-free block is a
// no-op rather than an error, matching the chain engine's habit of
// unlinking a block whose neighbors it may not have fully resolved.
func (a *Allocator) Free(b uint64) {
	if !a.sb.bits.Test(b) {
		return
	}
	a.sb.bits.Clear(b)
	a.sb.free++
}

// FreeMany frees every block in bs.
func (a *Allocator) FreeMany(bs []uint64) {
	for _, b := range bs {
		a.Free(b)
	}
}
