package knoxfs

import "github.com/knoxvfs/knoxvfs/container"

// Context is the shared handle every FileBlock, File and Folder in one
// image is built on: the logical cipher stream, the fixed block size,
// the byte offset of block 0 within that stream, and the allocator
// blocks are obtained from and returned to. It carries no lock; the
// Image facade above it is responsible for serializing access per §5.
type Context struct {
	Stream     *container.CipherStream
	BlockSize  uint64
	DataOffset uint64
	Allocator  *container.Allocator
}

// BlockOffset returns the logical stream offset of block index's
// metadata+payload region.
func (c *Context) BlockOffset(index uint64) uint64 {
	return c.DataOffset + index*c.BlockSize
}

// PayloadSize returns the usable payload bytes per block.
func (c *Context) PayloadSize() uint64 {
	return c.BlockSize - blockMetaSize
}
