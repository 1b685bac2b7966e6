package knoxfs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/knoxvfs/knoxvfs/layout"
	"github.com/knoxvfs/knoxvfs/vfserrors"
)

const (
	flagInUse = 1 << 0
	flagIsFile = 1 << 1
)

// slot is the in-memory form of one directory-entry-table row: 1
// flags byte, layout.MaxFilenameLength NUL-padded name bytes, and an
// 8-byte first-block index.
type slot struct {
	inUse      bool
	isFile     bool
	name       string
	firstBlock uint64
}

func (s *slot) toBytes() []byte {
	b := make([]byte, layout.SlotWidth)
	var flags byte
	if s.inUse {
		flags |= flagInUse
	}
	if s.isFile {
		flags |= flagIsFile
	}
	b[0] = flags
	nameBytes := []byte(s.name)
	copy(b[layout.SlotFlagsSize:layout.SlotFlagsSize+layout.SlotNameSize], nameBytes)
	binary.BigEndian.PutUint64(b[layout.SlotFlagsSize+layout.SlotNameSize:], s.firstBlock)
	return b
}

func slotFromBytes(b []byte) (*slot, error) {
	if len(b) < layout.SlotWidth {
		return nil, fmt.Errorf("knoxfs: slot is %d bytes, need %d", len(b), layout.SlotWidth)
	}
	flags := b[0]
	nameRegion := b[layout.SlotFlagsSize : layout.SlotFlagsSize+layout.SlotNameSize]
	nul := bytes.IndexByte(nameRegion, 0)
	name := string(nameRegion)
	if nul >= 0 {
		name = string(nameRegion[:nul])
	}
	return &slot{
		inUse:      flags&flagInUse != 0,
		isFile:     flags&flagIsFile != 0,
		name:       name,
		firstBlock: binary.BigEndian.Uint64(b[layout.SlotFlagsSize+layout.SlotNameSize:]),
	}, nil
}

// validateChildName enforces the naming constraints of §4.7.1.
func validateChildName(name string) error {
	if name == "" || len(name) > layout.MaxFilenameLength-1 {
		return vfserrors.New(vfserrors.IllegalFilename, "validateChildName", nil)
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			return vfserrors.New(vfserrors.IllegalFilename, "validateChildName", nil)
		}
	}
	return nil
}
