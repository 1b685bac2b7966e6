// Package knoxvfs implements a single-file encrypted virtual
// filesystem: a container header and superblock, a free-block
// allocator, a chain-of-blocks File abstraction, and Folder
// directory tables built on top of it. Image is the facade
// applications hold onto; everything below it is reachable only
// through Image's methods.
package knoxvfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"github.com/sirupsen/logrus"

	"github.com/knoxvfs/knoxvfs/cipher"
	"github.com/knoxvfs/knoxvfs/container"
	"github.com/knoxvfs/knoxvfs/knoxfs"
	"github.com/knoxvfs/knoxvfs/layout"
	"github.com/knoxvfs/knoxvfs/vfserrors"
)

// Image is an open knoxvfs container: one host file, one derived
// stream key, one root Folder. All operations are serialized behind
// a single coarse lock, per the concurrency model's single-writer
// rule.
type Image struct {
	mu sync.RWMutex

	path   string
	f      *os.File
	header *container.Header
	sb     *container.Superblock
	alloc  *container.Allocator
	ctx    *knoxfs.Context
	root   *knoxfs.Folder

	log *logrus.Entry
}

func newLogger(path string) *logrus.Entry {
	l := logrus.New()
	return l.WithFields(logrus.Fields{
		"image":   path,
		"session": uuid.New().String(),
	})
}

// Create formats a brand new image at path with blockCount blocks,
// protected by password, and returns it already open.
func Create(path string, blockCount uint64, password string, opts ...CreateOption) (*Image, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if blockCount == 0 {
		return nil, vfserrors.New(vfserrors.BadHeader, "Create", fmt.Errorf("blockCount must be > 0"))
	}

	totalSize := layout.HeaderSize + layout.SuperblockSize(blockCount) + blockCount*cfg.blockSize
	zeroed := make([]byte, totalSize)
	// Write the whole zeroed image into place atomically so a crash
	// during this write never leaves a partially written file at path.
	// The header, superblock and root folder are then written into it
	// in place.
	if err := atomic.WriteFile(path, bytes.NewReader(zeroed)); err != nil {
		return nil, vfserrors.New(vfserrors.BadHeader, "Create", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, vfserrors.New(vfserrors.BadHeader, "Create", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, vfserrors.New(vfserrors.BadHeader, "Create", err)
	}

	header, key, err := container.CreateHeader(f, cfg.cipherID, cfg.rounds, password)
	if err != nil {
		f.Close()
		return nil, err
	}

	stream, err := cipher.New(header.CipherID, key)
	if err != nil {
		f.Close()
		return nil, vfserrors.New(vfserrors.BadHeader, "Create", err)
	}
	cs := container.NewCipherStream(f, stream)

	sb := container.NewSuperblock(blockCount, cfg.blockSize)
	if _, err := cs.WriteAt(sb.ToBytes(), 0); err != nil {
		f.Close()
		return nil, vfserrors.New(vfserrors.BadHeader, "Create", err)
	}

	alloc := container.NewAllocator(sb)
	ctx := &knoxfs.Context{
		Stream:     cs,
		BlockSize:  cfg.blockSize,
		DataOffset: layout.SuperblockSize(blockCount),
		Allocator:  alloc,
	}

	root, err := formatRootFolder(ctx)
	if err != nil {
		f.Close()
		return nil, err
	}

	im := &Image{
		path:   path,
		f:      f,
		header: header,
		sb:     sb,
		alloc:  alloc,
		ctx:    ctx,
		root:   root,
		log:    newLogger(path),
	}
	im.log.Debug("image created")
	return im, nil
}

// formatRootFolder writes the entryCount header into the pre-allocated
// root block (index 0, reserved at superblock creation) and opens it
// as a Folder.
func formatRootFolder(ctx *knoxfs.Context) (*knoxfs.Folder, error) {
	// The root block has never been written through the cipher, so its
	// metadata does not decrypt to anything meaningful yet: give it a
	// terminal header first (bytesUsed = 0, next = 0 = its own index).
	meta := make([]byte, layout.BlockMetaSize)
	if _, err := ctx.Stream.WriteAt(meta, int64(ctx.BlockOffset(layout.RootBlockIndex))); err != nil {
		return nil, err
	}
	rootFile, err := knoxfs.OpenExistingFile(ctx, layout.RootBlockIndex, knoxfs.ReadWrite())
	if err != nil {
		return nil, err
	}
	zero := make([]byte, layout.EntryCountSize)
	if _, err := rootFile.Write(zero); err != nil {
		return nil, err
	}
	return knoxfs.OpenFolder(ctx, layout.RootBlockIndex, knoxfs.ReadWrite())
}

// Open authenticates against and opens an existing image.
func Open(path string, password string) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, vfserrors.New(vfserrors.BadHeader, "Open", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, vfserrors.New(vfserrors.BadHeader, "Open", err)
	}

	header, key, err := container.ReadHeader(f, password)
	if err != nil {
		f.Close()
		return nil, err
	}

	stream, err := cipher.New(header.CipherID, key)
	if err != nil {
		f.Close()
		return nil, vfserrors.New(vfserrors.BadHeader, "Open", err)
	}
	cs := container.NewCipherStream(f, stream)

	// Read the block count first (it's the leading field of the
	// superblock) so we know how many bitmap bytes follow it.
	countBuf := make([]byte, layout.SuperblockBlockCountSize)
	if _, err := cs.ReadAt(countBuf, 0); err != nil {
		f.Close()
		return nil, vfserrors.New(vfserrors.BadHeader, "Open", err)
	}
	blockCount := binary.BigEndian.Uint64(countBuf)
	sbRegion := make([]byte, layout.SuperblockSize(blockCount))
	if _, err := cs.ReadAt(sbRegion, 0); err != nil {
		f.Close()
		return nil, vfserrors.New(vfserrors.BadHeader, "Open", err)
	}
	sb, err := container.SuperblockFromBytes(sbRegion)
	if err != nil {
		f.Close()
		return nil, vfserrors.New(vfserrors.BadHeader, "Open", err)
	}

	alloc := container.NewAllocator(sb)
	ctx := &knoxfs.Context{
		Stream:     cs,
		BlockSize:  sb.BlockSize(),
		DataOffset: layout.SuperblockSize(blockCount),
		Allocator:  alloc,
	}

	root, err := knoxfs.OpenFolder(ctx, layout.RootBlockIndex, knoxfs.ReadWrite())
	if err != nil {
		f.Close()
		return nil, err
	}

	im := &Image{
		path:   path,
		f:      f,
		header: header,
		sb:     sb,
		alloc:  alloc,
		ctx:    ctx,
		root:   root,
		log:    newLogger(path),
	}
	im.log.Debug("image opened")
	return im, nil
}

// Close persists the superblock and releases the host file.
func (im *Image) Close() error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if _, err := im.ctx.Stream.WriteAt(im.sb.ToBytes(), 0); err != nil {
		return vfserrors.New(vfserrors.BadHeader, "Close", err)
	}
	unlockFile(im.f)
	return im.f.Close()
}

func (im *Image) walkToFolder(parts []string) (*knoxfs.Folder, error) {
	cur := im.root
	for _, name := range parts {
		entry, err := cur.Lookup(name)
		if err != nil {
			return nil, err
		}
		if entry.IsFile {
			return nil, vfserrors.New(vfserrors.NotFound, "walkToFolder", fmt.Errorf("%s is a file, not a folder", name))
		}
		cur, err = knoxfs.OpenFolder(im.ctx, entry.FirstBlock, knoxfs.ReadWrite())
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func (im *Image) resolveParent(path string) (*knoxfs.Folder, string, error) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, "", err
	}
	if len(parts) == 0 {
		return nil, "", vfserrors.New(vfserrors.IllegalFilename, "resolveParent", nil)
	}
	parent, err := im.walkToFolder(parts[:len(parts)-1])
	if err != nil {
		return nil, "", err
	}
	return parent, parts[len(parts)-1], nil
}

// AddFile creates a new, empty file at path.
func (im *Image) AddFile(path string) (knoxfs.EntryInfo, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	parent, name, err := im.resolveParent(path)
	if err != nil {
		return knoxfs.EntryInfo{}, err
	}
	return parent.Add(name, true)
}

// AddFolder creates a new, empty folder at path.
func (im *Image) AddFolder(path string) (knoxfs.EntryInfo, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	parent, name, err := im.resolveParent(path)
	if err != nil {
		return knoxfs.EntryInfo{}, err
	}
	return parent.Add(name, false)
}

// Remove deletes the entry at path. recursive must be true to remove
// a non-empty folder.
func (im *Image) Remove(path string, recursive bool) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	parent, name, err := im.resolveParent(path)
	if err != nil {
		return err
	}
	return parent.Remove(name, recursive)
}

// Rename moves or renames the entry at src to dst, reusing the chain
// in place whenever src and dst share a parent folder.
func (im *Image) Rename(src, dst string) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	srcParent, srcName, err := im.resolveParent(src)
	if err != nil {
		return err
	}
	dstParent, dstName, err := im.resolveParent(dst)
	if err != nil {
		return err
	}
	if srcParent.FirstBlock() == dstParent.FirstBlock() {
		return srcParent.RenameInPlace(srcName, dstName)
	}
	return srcParent.RenameAcrossFolders(srcName, dstParent, dstName)
}

// Stat returns the EntryInfo for path.
func (im *Image) Stat(path string) (knoxfs.EntryInfo, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	parts, err := splitPath(path)
	if err != nil {
		return knoxfs.EntryInfo{}, err
	}
	if len(parts) == 0 {
		return knoxfs.EntryInfo{Name: "/", FirstBlock: layout.RootBlockIndex, IsFile: false, Size: im.root.Size()}, nil
	}
	parent, err := im.walkToFolder(parts[:len(parts)-1])
	if err != nil {
		return knoxfs.EntryInfo{}, err
	}
	return parent.Lookup(parts[len(parts)-1])
}

// List returns every alive entry of the folder at folderPath.
func (im *Image) List(folderPath string) ([]knoxfs.EntryInfo, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	parts, err := splitPath(folderPath)
	if err != nil {
		return nil, err
	}
	folder, err := im.walkToFolder(parts)
	if err != nil {
		return nil, err
	}
	return folder.Iterate()
}

// OpenFile opens the file at path with the given disposition.
func (im *Image) OpenFile(path string, disp knoxfs.OpenDisposition) (*knoxfs.File, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	parts, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, vfserrors.New(vfserrors.IllegalFilename, "OpenFile", nil)
	}
	parent, err := im.walkToFolder(parts[:len(parts)-1])
	if err != nil {
		return nil, err
	}
	name := parts[len(parts)-1]
	entry, err := parent.Lookup(name)
	if err != nil {
		if !vfserrors.Is(err, vfserrors.NotFound) || !disp.CreateIfMissing {
			return nil, err
		}
		entry, err = parent.Add(name, true)
		if err != nil {
			return nil, err
		}
	}
	if !entry.IsFile {
		return nil, vfserrors.New(vfserrors.NotFound, "OpenFile", fmt.Errorf("%s is a folder", path))
	}
	return knoxfs.OpenExistingFile(im.ctx, entry.FirstBlock, disp)
}

// Truncate resizes the file at path to size bytes (size <= current
// size; growth happens by writing).
func (im *Image) Truncate(path string, size uint64) error {
	f, err := im.OpenFile(path, knoxfs.ReadWrite())
	if err != nil {
		return err
	}
	defer f.Close()
	im.mu.Lock()
	defer im.mu.Unlock()
	return f.Truncate(size)
}

// StatVFS reports volume-wide capacity.
func (im *Image) StatVFS() VolumeStat {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return VolumeStat{
		BlockSize:  im.ctx.BlockSize,
		BlockCount: im.sb.BlockCount(),
		FreeBlocks: im.sb.FreeBlocks(),
		MaxNameLen: MaxNameLen,
	}
}
