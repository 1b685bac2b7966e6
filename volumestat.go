package knoxvfs

import "github.com/knoxvfs/knoxvfs/layout"

// VolumeStat answers statvfs()-style volume-level questions, §4.3/§6.
type VolumeStat struct {
	BlockSize  uint64
	BlockCount uint64
	FreeBlocks uint64
	MaxNameLen int
}

// MaxNameLen is the longest name a directory slot can hold,
// independent of any open Image.
const MaxNameLen = layout.MaxFilenameLength - 1
