// Package bitmap implements the volume bitmap: one bit per block,
// bit b set iff block b is in use. The in-memory scan is delegated to
// bits-and-blooms/bitset, while the on-disk representation stays a
// plain packed-bit layout rather than that library's own wire format.
package bitmap

import (
	bitset "github.com/bits-and-blooms/bitset"
)

// Bitmap is a fixed-length, bit-per-block allocation map.
type Bitmap struct {
	bits *bitset.BitSet
	n    uint64
}

// New returns a Bitmap of n bits, all clear.
func New(n uint64) *Bitmap {
	return &Bitmap{bits: bitset.New(uint(n)), n: n}
}

// FromBytes reconstructs a Bitmap of n bits from its packed on-disk
// form (bit b lives at byte b/8, bit position b%8, LSB first).
func FromBytes(b []byte, n uint64) *Bitmap {
	bm := New(n)
	for i := uint64(0); i < n; i++ {
		byteIdx := i / 8
		if byteIdx >= uint64(len(b)) {
			break
		}
		if b[byteIdx]&(1<<(i%8)) != 0 {
			bm.bits.Set(uint(i))
		}
	}
	return bm
}

// Bytes packs the bitmap into its on-disk form, ceil(n/8) bytes long.
func (bm *Bitmap) Bytes() []byte {
	out := make([]byte, (bm.n+7)/8)
	for i := uint64(0); i < bm.n; i++ {
		if bm.bits.Test(uint(i)) {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

// Len returns the number of bits (blocks) this bitmap tracks.
func (bm *Bitmap) Len() uint64 { return bm.n }

// Test reports whether bit i (block i) is set.
func (bm *Bitmap) Test(i uint64) bool { return bm.bits.Test(uint(i)) }

// Set marks bit i in use.
func (bm *Bitmap) Set(i uint64) { bm.bits.Set(uint(i)) }

// Clear marks bit i free.
func (bm *Bitmap) Clear(i uint64) { bm.bits.Clear(uint(i)) }

// NextClear returns the lowest clear bit at or after i, within [0, n).
func (bm *Bitmap) NextClear(i uint64) (uint64, bool) {
	if i >= bm.n {
		return 0, false
	}
	idx, ok := bm.bits.NextClear(uint(i))
	if !ok || uint64(idx) >= bm.n {
		return 0, false
	}
	return uint64(idx), true
}

// Count returns the number of set bits.
func (bm *Bitmap) Count() uint64 { return uint64(bm.bits.Count()) }
