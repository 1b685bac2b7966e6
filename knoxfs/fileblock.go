package knoxfs

import (
	"encoding/binary"

	"github.com/knoxvfs/knoxvfs/layout"
	"github.com/knoxvfs/knoxvfs/vfserrors"
)

const blockMetaSize = layout.BlockMetaSize

// FileBlock is one fixed-size block of a chain: a 4-byte bytesUsed
// field, an 8-byte next-block index, and a payload region. It caches
// its metadata in memory between disk round-trips and only persists
// the fields an operation actually changed.
type FileBlock struct {
	ctx  *Context
	disp OpenDisposition

	index  uint64
	offset uint64

	bytesUsed        uint32
	next             uint64
	seekPos          uint64
	initialBytesUsed uint32
}

// openFileBlock loads an existing block's metadata from disk.
func openFileBlock(ctx *Context, index uint64, disp OpenDisposition) (*FileBlock, error) {
	fb := &FileBlock{
		ctx:    ctx,
		disp:   disp,
		index:  index,
		offset: ctx.BlockOffset(index),
	}
	meta := make([]byte, blockMetaSize)
	if _, err := ctx.Stream.ReadAt(meta, int64(fb.offset)); err != nil {
		return nil, vfserrors.New(vfserrors.CorruptChain, "openFileBlock", err)
	}
	fb.bytesUsed = binary.BigEndian.Uint32(meta[0:4])
	fb.next = binary.BigEndian.Uint64(meta[4:12])
	fb.initialBytesUsed = fb.bytesUsed
	return fb, nil
}

// newTerminalFileBlock allocates and formats a fresh terminal block
// (next = self, bytesUsed = 0) at index, the shape every newly
// allocated block in a chain starts in.
func newTerminalFileBlock(ctx *Context, index uint64, disp OpenDisposition) (*FileBlock, error) {
	fb := &FileBlock{
		ctx:    ctx,
		disp:   disp,
		index:  index,
		offset: ctx.BlockOffset(index),
		next:   index,
	}
	if err := fb.persistMeta(); err != nil {
		return nil, err
	}
	return fb, nil
}

func (fb *FileBlock) persistMeta() error {
	meta := make([]byte, blockMetaSize)
	binary.BigEndian.PutUint32(meta[0:4], fb.bytesUsed)
	binary.BigEndian.PutUint64(meta[4:12], fb.next)
	_, err := fb.ctx.Stream.WriteAt(meta, int64(fb.offset))
	return err
}

// BytesUsed returns the cached payload-used length.
func (fb *FileBlock) BytesUsed() uint32 { return fb.bytesUsed }

// Next returns the cached next-block index.
func (fb *FileBlock) Next() uint64 { return fb.next }

// IsTerminal reports whether this block ends its chain.
func (fb *FileBlock) IsTerminal() bool { return fb.next == fb.index }

// Index returns this block's index within the volume.
func (fb *FileBlock) Index() uint64 { return fb.index }

// setSize persists a new bytesUsed.
func (fb *FileBlock) setSize(s uint32) error {
	fb.bytesUsed = s
	meta := make([]byte, 4)
	binary.BigEndian.PutUint32(meta, s)
	_, err := fb.ctx.Stream.WriteAt(meta, int64(fb.offset))
	return err
}

// setNext persists a new next-block index.
func (fb *FileBlock) setNext(next uint64) error {
	fb.next = next
	meta := make([]byte, 8)
	binary.BigEndian.PutUint64(meta, next)
	_, err := fb.ctx.Stream.WriteAt(meta, int64(fb.offset+4))
	return err
}

// markTerminal sets next := self, the terminal-block rule of §4.5.
func (fb *FileBlock) markTerminal() error { return fb.setNext(fb.index) }

// readPayload reads up to len(buf) bytes starting at seekPos, not
// exceeding bytesUsed, and advances seekPos by the amount read.
func (fb *FileBlock) readPayload(buf []byte) (int, error) {
	if !fb.disp.Read {
		return 0, vfserrors.New(vfserrors.NotReadable, "readPayload", nil)
	}
	avail := uint64(fb.bytesUsed) - fb.seekPos
	n := uint64(len(buf))
	if n > avail {
		n = avail
	}
	if n == 0 {
		return 0, nil
	}
	off := fb.offset + blockMetaSize + fb.seekPos
	if _, err := fb.ctx.Stream.ReadAt(buf[:n], int64(off)); err != nil {
		return 0, err
	}
	fb.seekPos += n
	return int(n), nil
}

// writePayload writes buf at seekPos and updates bytesUsed per the
// block's open disposition (append extends unconditionally; overwrite
// only grows bytesUsed up to the new high-water mark).
func (fb *FileBlock) writePayload(buf []byte) (int, error) {
	if !fb.disp.Write {
		return 0, vfserrors.New(vfserrors.NotWritable, "writePayload", nil)
	}
	off := fb.offset + blockMetaSize + fb.seekPos
	if _, err := fb.ctx.Stream.WriteAt(buf, int64(off)); err != nil {
		return 0, err
	}
	n := uint64(len(buf))
	if fb.disp.Append {
		if err := fb.setSize(fb.bytesUsed + uint32(n)); err != nil {
			return 0, err
		}
	} else {
		newUsed := fb.seekPos + n
		if newUsed > uint64(fb.bytesUsed) {
			if err := fb.setSize(uint32(newUsed)); err != nil {
				return 0, err
			}
		}
	}
	fb.seekPos += n
	return int(n), nil
}

// seekTo repositions this block's payload cursor directly, used by
// File when it resolves a logical offset into (block, in-block pos).
func (fb *FileBlock) seekTo(pos uint64) { fb.seekPos = pos }
