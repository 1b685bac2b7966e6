package knoxfs

import (
	"github.com/knoxvfs/knoxvfs/cipher"
	"github.com/knoxvfs/knoxvfs/container"
	"github.com/knoxvfs/knoxvfs/layout"
	"github.com/knoxvfs/knoxvfs/util"
)

// newTestContext builds a Context over an in-memory file with n
// blocks of blockSize bytes each, block 0 pre-reserved for whatever
// root structure the test wants to format itself.
func newTestContext(n, blockSize uint64) *Context {
	total := int64(layout.HeaderSize) + int64(n*blockSize)
	f := util.NewMemFile(total)
	stream, err := cipher.New(cipher.None, nil)
	if err != nil {
		panic(err)
	}
	cs := container.NewCipherStream(f, stream)
	sb := container.NewSuperblock(n, blockSize)
	return &Context{
		Stream:     cs,
		BlockSize:  blockSize,
		DataOffset: 0,
		Allocator:  container.NewAllocator(sb),
	}
}
