package knoxfs

import (
	"io"

	"github.com/knoxvfs/knoxvfs/vfserrors"
)

// File is a seekable stream backed by a chain of FileBlocks, the
// hardest subsystem in the image: it turns a singly-linked list of
// fixed blocks into something that behaves like an os.File.
type File struct {
	ctx        *Context
	disp       OpenDisposition
	firstBlock uint64
	chain      []*FileBlock
	fileSize   uint64
	pos        uint64
	dead       bool
}

// OpenExistingFile loads the chain starting at firstBlock, per the
// open-existing walk of §4.6.2: accumulate bytesUsed into fileSize,
// stop at the terminal self-loop, fail CorruptChain on any other
// revisit. If disp.Truncate is set, the chain is then collapsed to a
// single empty block, same as Truncate(0).
func OpenExistingFile(ctx *Context, firstBlock uint64, disp OpenDisposition) (*File, error) {
	f := &File{ctx: ctx, disp: disp, firstBlock: firstBlock}
	seen := make(map[uint64]bool)
	idx := firstBlock
	for {
		if seen[idx] {
			return nil, vfserrors.New(vfserrors.CorruptChain, "OpenExistingFile", nil)
		}
		seen[idx] = true
		blk, err := openFileBlock(ctx, idx, disp)
		if err != nil {
			return nil, err
		}
		f.fileSize += uint64(blk.bytesUsed)
		f.chain = append(f.chain, blk)
		if blk.IsTerminal() {
			break
		}
		idx = blk.next
	}
	if disp.Truncate {
		if !disp.Write {
			return nil, vfserrors.New(vfserrors.NotWritable, "OpenExistingFile", nil)
		}
		if err := f.Truncate(0); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// CreateFile allocates a single fresh terminal block and returns an
// empty File rooted on it.
func CreateFile(ctx *Context, disp OpenDisposition) (*File, error) {
	idx, err := ctx.Allocator.AllocateOne()
	if err != nil {
		return nil, err
	}
	blk, err := newTerminalFileBlock(ctx, idx, disp)
	if err != nil {
		return nil, err
	}
	return &File{ctx: ctx, disp: disp, firstBlock: idx, chain: []*FileBlock{blk}}, nil
}

// FirstBlock returns the chain's root block index, the value stored
// in the owning Folder's directory slot.
func (f *File) FirstBlock() uint64 { return f.firstBlock }

// Size returns the logical byte length of the file.
func (f *File) Size() uint64 { return f.fileSize }

func (f *File) payload() uint64 { return f.ctx.PayloadSize() }

func (f *File) resolve(p uint64) (int, uint64) {
	payload := f.payload()
	return int(p / payload), p % payload
}

// Seek repositions the logical cursor. Seeking past the end of the
// loaded chain fails OutOfRange unless the file is open for writing,
// matching §4.6.3 (writing past EOF is what extends the chain).
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = int64(f.pos) + offset
	case io.SeekEnd:
		target = int64(f.fileSize) + offset
	default:
		return 0, vfserrors.New(vfserrors.OutOfRange, "Seek", nil)
	}
	if target < 0 {
		return 0, vfserrors.New(vfserrors.OutOfRange, "Seek", nil)
	}
	blockIdx, _ := f.resolve(uint64(target))
	if blockIdx >= len(f.chain) && !f.disp.Write {
		return 0, vfserrors.New(vfserrors.OutOfRange, "Seek", nil)
	}
	f.pos = uint64(target)
	return int64(f.pos), nil
}

// Tell returns the current logical cursor position.
func (f *File) Tell() uint64 { return f.pos }

// Read implements io.Reader over the logical byte stream per §4.6.4.
func (f *File) Read(buf []byte) (int, error) {
	if !f.disp.Read {
		return 0, vfserrors.New(vfserrors.NotReadable, "Read", nil)
	}
	if f.pos >= f.fileSize || len(buf) == 0 {
		if len(buf) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	done := 0
	for done < len(buf) && f.pos < f.fileSize {
		blockIdx, offWithin := f.resolve(f.pos)
		if blockIdx >= len(f.chain) {
			break
		}
		blk := f.chain[blockIdx]
		blk.seekTo(offWithin)
		avail := uint64(blk.bytesUsed) - offWithin
		want := uint64(len(buf) - done)
		if want > avail {
			want = avail
		}
		if want == 0 {
			break
		}
		n, err := blk.readPayload(buf[done : done+int(want)])
		if err != nil {
			return done, err
		}
		if n == 0 {
			break
		}
		done += n
		f.pos += uint64(n)
	}
	if done == 0 {
		return 0, io.EOF
	}
	return done, nil
}

// Write implements io.Writer, dispatching to the append or overwrite
// path per the file's OpenDisposition, §4.6.5.
func (f *File) Write(p []byte) (int, error) {
	if !f.disp.Write {
		return 0, vfserrors.New(vfserrors.NotWritable, "Write", nil)
	}
	if f.disp.Append {
		return f.writeAppend(p)
	}
	return f.writeOverwrite(p)
}

func (f *File) writeAppend(p []byte) (int, error) {
	written := 0
	payload := f.payload()
	for written < len(p) {
		term := f.chain[len(f.chain)-1]
		room := payload - uint64(term.bytesUsed)
		if room == 0 {
			idx, err := f.ctx.Allocator.AllocateOne()
			if err != nil {
				return written, err
			}
			newBlk, err := newTerminalFileBlock(f.ctx, idx, f.disp)
			if err != nil {
				return written, err
			}
			if err := term.setNext(idx); err != nil {
				return written, err
			}
			f.chain = append(f.chain, newBlk)
			continue
		}
		term.seekTo(uint64(term.bytesUsed))
		chunk := p[written:]
		if uint64(len(chunk)) > room {
			chunk = chunk[:room]
		}
		n, err := term.writePayload(chunk)
		if err != nil {
			return written, err
		}
		written += n
		f.fileSize += uint64(n)
	}
	f.pos = f.fileSize
	return written, nil
}

func (f *File) writeOverwrite(p []byte) (int, error) {
	written := 0
	payload := f.payload()
	for written < len(p) {
		blockIdx, offWithin := f.resolve(f.pos)
		if blockIdx >= len(f.chain) {
			n, err := f.writeAppend(p[written:])
			written += n
			return written, err
		}
		blk := f.chain[blockIdx]
		blk.seekTo(offWithin)
		room := payload - offWithin
		chunk := p[written:]
		if uint64(len(chunk)) > room {
			chunk = chunk[:room]
		}
		n, err := blk.writePayload(chunk)
		if err != nil {
			return written, err
		}
		written += n
		f.pos += uint64(n)
		if f.pos > f.fileSize {
			f.fileSize = f.pos
		}
	}
	return written, nil
}

// Truncate shrinks the chain to size s, freeing every block strictly
// past the new terminal, per §4.6.6. Growth is not supported here;
// it happens by writing.
func (f *File) Truncate(s uint64) error {
	if s > f.fileSize {
		return vfserrors.New(vfserrors.OutOfRange, "Truncate", nil)
	}
	payload := f.payload()
	var targetIdx int
	var newUsed uint32
	if s == 0 {
		targetIdx = 0
		newUsed = 0
	} else {
		idx, rem := f.resolve(s)
		if rem == 0 {
			rem = payload
			idx--
		}
		targetIdx = idx
		newUsed = uint32(rem)
	}

	freed := make([]uint64, 0, len(f.chain)-targetIdx-1)
	for i := targetIdx + 1; i < len(f.chain); i++ {
		freed = append(freed, f.chain[i].Index())
	}
	f.ctx.Allocator.FreeMany(freed)
	f.chain = f.chain[:targetIdx+1]

	term := f.chain[targetIdx]
	if err := term.setSize(newUsed); err != nil {
		return err
	}
	if err := term.markTerminal(); err != nil {
		return err
	}
	f.fileSize = s
	if f.pos > s {
		f.pos = s
	}
	return nil
}

// Unlink frees every block in the chain. The receiver is unusable
// afterward; the owning Folder must clear its directory slot first.
func (f *File) Unlink() error {
	idxs := make([]uint64, len(f.chain))
	for i, blk := range f.chain {
		idxs[i] = blk.Index()
	}
	f.ctx.Allocator.FreeMany(idxs)
	f.chain = nil
	f.dead = true
	return nil
}

// Close releases the handle. There is no buffering to flush: every
// writePayload/setSize/setNext call above already went straight
// through the cipher stream.
func (f *File) Close() error { return nil }
