package knoxfs

import (
	"encoding/binary"
	"io"

	"github.com/knoxvfs/knoxvfs/layout"
	"github.com/knoxvfs/knoxvfs/vfserrors"
)

// Folder is a File whose payload is a directory-entry table: an
// 8-byte entryCount header followed by entryCount fixed-width slots.
// Lookups are cached by name; any mutation of the folder invalidates
// the whole cache rather than tracking per-entry staleness.
type Folder struct {
	ctx        *Context
	file       *File
	entryCount uint64
	cache      map[string]EntryInfo
}

// CreateFolder allocates a fresh backing File and formats it as an
// empty directory table (entryCount = 0).
func CreateFolder(ctx *Context, disp OpenDisposition) (*Folder, error) {
	file, err := CreateFile(ctx, disp)
	if err != nil {
		return nil, err
	}
	if err := formatAsFolder(file); err != nil {
		return nil, err
	}
	return OpenFolder(ctx, file.FirstBlock(), disp)
}

// OpenFolder loads the directory table rooted at firstBlock.
func OpenFolder(ctx *Context, firstBlock uint64, disp OpenDisposition) (*Folder, error) {
	file, err := OpenExistingFile(ctx, firstBlock, disp)
	if err != nil {
		return nil, err
	}
	fo := &Folder{ctx: ctx, file: file, cache: map[string]EntryInfo{}}
	if err := fo.readEntryCount(); err != nil {
		return nil, err
	}
	return fo, nil
}

func formatAsFolder(f *File) error {
	zero := make([]byte, layout.EntryCountSize)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := f.Write(zero)
	return err
}

// FirstBlock returns this folder's own backing File's first block,
// the value a parent directory slot points at.
func (fo *Folder) FirstBlock() uint64 { return fo.file.FirstBlock() }

// Size returns the logical byte length of this folder's own backing
// chain (the directory table itself), the same quantity childSize
// reports for this folder when looked up from its parent.
func (fo *Folder) Size() uint64 { return fo.file.Size() }

func (fo *Folder) readEntryCount() error {
	buf := make([]byte, layout.EntryCountSize)
	if _, err := fo.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	n, err := io.ReadFull(fo.file, buf)
	if err != nil && n < len(buf) {
		return vfserrors.New(vfserrors.CorruptChain, "readEntryCount", err)
	}
	fo.entryCount = binary.BigEndian.Uint64(buf)
	return nil
}

func (fo *Folder) writeEntryCount() error {
	buf := make([]byte, layout.EntryCountSize)
	binary.BigEndian.PutUint64(buf, fo.entryCount)
	if _, err := fo.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := fo.file.Write(buf)
	return err
}

func slotOffset(k uint64) int64 {
	return int64(layout.EntryCountSize + k*layout.SlotWidth)
}

func (fo *Folder) readSlot(k uint64) (*slot, error) {
	buf := make([]byte, layout.SlotWidth)
	if _, err := fo.file.Seek(slotOffset(k), io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(fo.file, buf); err != nil {
		return nil, vfserrors.New(vfserrors.CorruptChain, "readSlot", err)
	}
	return slotFromBytes(buf)
}

func (fo *Folder) writeSlot(k uint64, s *slot) error {
	if _, err := fo.file.Seek(slotOffset(k), io.SeekStart); err != nil {
		return err
	}
	_, err := fo.file.Write(s.toBytes())
	return err
}

func (fo *Folder) invalidate() { fo.cache = map[string]EntryInfo{} }

// childSize opens the child's chain read-only just to measure its
// logical size, per the Lookup contract of §4.7.2.
func (fo *Folder) childSize(firstBlock uint64) (uint64, error) {
	child, err := OpenExistingFile(fo.ctx, firstBlock, ReadOnly())
	if err != nil {
		return 0, err
	}
	return child.Size(), nil
}

// findByName scans slots in order, skipping tombstones, and returns
// the slot plus its index on the first alive name match.
func (fo *Folder) findByName(name string) (*slot, uint64, error) {
	for k := uint64(0); k < fo.entryCount; k++ {
		s, err := fo.readSlot(k)
		if err != nil {
			return nil, 0, err
		}
		if s.inUse && s.name == name {
			return s, k, nil
		}
	}
	return nil, 0, nil
}

// Lookup returns the alive entry named name, NotFound otherwise. The
// slot found for a name is cached; the child's size is re-measured on
// every call, since writes to the child do not mutate this folder.
func (fo *Folder) Lookup(name string) (EntryInfo, error) {
	if info, ok := fo.cache[name]; ok {
		size, err := fo.childSize(info.FirstBlock)
		if err != nil {
			return EntryInfo{}, err
		}
		info.Size = size
		return info, nil
	}
	s, idx, err := fo.findByName(name)
	if err != nil {
		return EntryInfo{}, err
	}
	if s == nil {
		return EntryInfo{}, vfserrors.New(vfserrors.NotFound, "Lookup", nil)
	}
	size, err := fo.childSize(s.firstBlock)
	if err != nil {
		return EntryInfo{}, err
	}
	info := EntryInfo{Name: s.name, FirstBlock: s.firstBlock, IsFile: s.isFile, Size: size, SlotIndex: idx}
	fo.cache[name] = info
	return info, nil
}

// findFreeSlot returns the first tombstoned slot index, or
// entryCount if the table has no holes.
func (fo *Folder) findFreeSlot() (uint64, error) {
	for k := uint64(0); k < fo.entryCount; k++ {
		s, err := fo.readSlot(k)
		if err != nil {
			return 0, err
		}
		if !s.inUse {
			return k, nil
		}
	}
	return fo.entryCount, nil
}

// addExisting writes a new slot pointing at an already-allocated
// child chain, used directly by cross-folder Rename so no data moves.
func (fo *Folder) addExisting(name string, isFile bool, firstBlock uint64) (EntryInfo, error) {
	if err := validateChildName(name); err != nil {
		return EntryInfo{}, err
	}
	if existing, _, err := fo.findByName(name); err != nil {
		return EntryInfo{}, err
	} else if existing != nil {
		return EntryInfo{}, vfserrors.New(vfserrors.AlreadyExists, "Add", nil)
	}

	idx, err := fo.findFreeSlot()
	if err != nil {
		return EntryInfo{}, err
	}
	s := &slot{inUse: true, isFile: isFile, name: name, firstBlock: firstBlock}
	if err := fo.writeSlot(idx, s); err != nil {
		return EntryInfo{}, err
	}
	if idx == fo.entryCount {
		fo.entryCount++
		if err := fo.writeEntryCount(); err != nil {
			return EntryInfo{}, err
		}
	}
	fo.invalidate()
	return EntryInfo{Name: name, FirstBlock: firstBlock, IsFile: isFile, Size: 0, SlotIndex: idx}, nil
}

// Add creates a brand new child (file or folder) named name and
// links it into this directory table, per §4.7.1.
func (fo *Folder) Add(name string, isFile bool) (EntryInfo, error) {
	if err := validateChildName(name); err != nil {
		return EntryInfo{}, err
	}
	if existing, _, err := fo.findByName(name); err != nil {
		return EntryInfo{}, err
	} else if existing != nil {
		return EntryInfo{}, vfserrors.New(vfserrors.AlreadyExists, "Add", nil)
	}

	child, err := CreateFile(fo.ctx, ReadWrite())
	if err != nil {
		return EntryInfo{}, err
	}
	if !isFile {
		if err := formatAsFolder(child); err != nil {
			return EntryInfo{}, err
		}
	}
	return fo.addExisting(name, isFile, child.FirstBlock())
}

// RenameInPlace overwrites only the name bytes of the slot named
// oldName, the same-folder case of §4.7.3.
func (fo *Folder) RenameInPlace(oldName, newName string) error {
	if err := validateChildName(newName); err != nil {
		return err
	}
	s, idx, err := fo.findByName(oldName)
	if err != nil {
		return err
	}
	if s == nil {
		return vfserrors.New(vfserrors.NotFound, "RenameInPlace", nil)
	}
	if newName != oldName {
		if other, _, err := fo.findByName(newName); err != nil {
			return err
		} else if other != nil {
			return vfserrors.New(vfserrors.AlreadyExists, "RenameInPlace", nil)
		}
	}
	s.name = newName
	if err := fo.writeSlot(idx, s); err != nil {
		return err
	}
	fo.invalidate()
	return nil
}

// RenameAcrossFolders tombstones oldName's slot here and adds a new
// slot in dst pointing at the same first-block index: no file data
// moves, so this is O(1) regardless of file size, per §4.7.3.
func (fo *Folder) RenameAcrossFolders(oldName string, dst *Folder, newName string) error {
	s, idx, err := fo.findByName(oldName)
	if err != nil {
		return err
	}
	if s == nil {
		return vfserrors.New(vfserrors.NotFound, "RenameAcrossFolders", nil)
	}
	if _, err := dst.addExisting(newName, s.isFile, s.firstBlock); err != nil {
		return err
	}
	s.inUse = false
	if err := fo.writeSlot(idx, s); err != nil {
		return err
	}
	fo.invalidate()
	return nil
}

// Remove deletes the child named name. Folder children must be empty
// unless recursive is set, in which case every alive descendant is
// removed first, post-order, per §4.7.4.
func (fo *Folder) Remove(name string, recursive bool) error {
	s, idx, err := fo.findByName(name)
	if err != nil {
		return err
	}
	if s == nil {
		return vfserrors.New(vfserrors.NotFound, "Remove", nil)
	}

	if !s.isFile {
		child, err := OpenFolder(fo.ctx, s.firstBlock, ReadWrite())
		if err != nil {
			return err
		}
		entries, err := child.Iterate()
		if err != nil {
			return err
		}
		if len(entries) > 0 && !recursive {
			return vfserrors.New(vfserrors.FolderNotEmpty, "Remove", nil)
		}
		for _, e := range entries {
			if err := child.Remove(e.Name, true); err != nil {
				return err
			}
		}
	}

	childFile, err := OpenExistingFile(fo.ctx, s.firstBlock, ReadWrite())
	if err != nil {
		return err
	}
	if err := childFile.Unlink(); err != nil {
		return err
	}

	s.inUse = false
	if err := fo.writeSlot(idx, s); err != nil {
		return err
	}
	fo.invalidate()
	return nil
}

// Iterate returns every alive entry in slot order.
func (fo *Folder) Iterate() ([]EntryInfo, error) {
	out := make([]EntryInfo, 0, fo.entryCount)
	for k := uint64(0); k < fo.entryCount; k++ {
		s, err := fo.readSlot(k)
		if err != nil {
			return nil, err
		}
		if !s.inUse {
			continue
		}
		size, err := fo.childSize(s.firstBlock)
		if err != nil {
			return nil, err
		}
		out = append(out, EntryInfo{Name: s.name, FirstBlock: s.firstBlock, IsFile: s.isFile, Size: size, SlotIndex: k})
	}
	return out, nil
}
