package container

import (
	"encoding/binary"
	"fmt"

	"github.com/knoxvfs/knoxvfs/bitmap"
	"github.com/knoxvfs/knoxvfs/layout"
)

// Superblock is the volume-wide allocation record: the total block
// count fixed at creation, a bit-per-block allocation map, and a
// running count of free blocks kept so callers never need to rescan
// the bitmap just to answer "is there room".
type Superblock struct {
	blockCount uint64
	blockSize  uint64
	bits       *bitmap.Bitmap
	free       uint64
}

// NewSuperblock returns a fresh, all-free Superblock for a volume of n
// blocks of size blockSize, with block 0 already marked in use for the
// root folder.
func NewSuperblock(n, blockSize uint64) *Superblock {
	sb := &Superblock{
		blockCount: n,
		blockSize:  blockSize,
		bits:       bitmap.New(n),
		free:       n,
	}
	sb.bits.Set(layout.RootBlockIndex)
	sb.free--
	return sb
}

// ToBytes serializes the superblock to its on-disk form: blockCount,
// blockSize, the packed bitmap, then the free-block counter.
func (sb *Superblock) ToBytes() []byte {
	out := make([]byte, layout.SuperblockSize(sb.blockCount))
	binary.BigEndian.PutUint64(out, sb.blockCount)
	binary.BigEndian.PutUint64(out[layout.SuperblockBlockCountSize:], sb.blockSize)
	bmOff := layout.SuperblockBlockCountSize + layout.SuperblockBlockSizeFieldSize
	bm := sb.bits.Bytes()
	copy(out[bmOff:], bm)
	binary.BigEndian.PutUint64(out[bmOff+uint64(len(bm)):], sb.free)
	return out
}

// SuperblockFromBytes parses a superblock region previously written by
// ToBytes. It does not trust the caller's idea of the volume size: the
// block count embedded in the bytes is authoritative.
func SuperblockFromBytes(b []byte) (*Superblock, error) {
	if uint64(len(b)) < layout.SuperblockBlockCountSize+layout.SuperblockBlockSizeFieldSize+layout.SuperblockFreeCounterSize {
		return nil, fmt.Errorf("container: superblock region is %d bytes, too short", len(b))
	}
	n := binary.BigEndian.Uint64(b)
	want := layout.SuperblockSize(n)
	if uint64(len(b)) < want {
		return nil, fmt.Errorf("container: superblock region is %d bytes, need %d for %d blocks", len(b), want, n)
	}
	blockSize := binary.BigEndian.Uint64(b[layout.SuperblockBlockCountSize:])
	bmOff := layout.SuperblockBlockCountSize + layout.SuperblockBlockSizeFieldSize
	bmBytes := b[bmOff : bmOff+layout.BitmapBytes(n)]
	free := binary.BigEndian.Uint64(b[bmOff+layout.BitmapBytes(n):])
	return &Superblock{
		blockCount: n,
		blockSize:  blockSize,
		bits:       bitmap.FromBytes(bmBytes, n),
		free:       free,
	}, nil
}

// BlockCount returns the total number of blocks in the volume.
func (sb *Superblock) BlockCount() uint64 { return sb.blockCount }

// BlockSize returns the fixed per-block size of the volume.
func (sb *Superblock) BlockSize() uint64 { return sb.blockSize }

// FreeBlocks returns the cached count of unallocated blocks.
func (sb *Superblock) FreeBlocks() uint64 { return sb.free }

// IsAllocated reports whether block index b is currently in use.
func (sb *Superblock) IsAllocated(b uint64) bool { return sb.bits.Test(b) }

// CountAllocated recomputes the number of set bits directly from the
// bitmap, independent of the free counter; used by consistency checks
// that must not trust a counter that could itself be corrupt.
func (sb *Superblock) CountAllocated() uint64 { return sb.bits.Count() }
