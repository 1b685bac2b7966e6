package knoxfs

// EntryInfo is a value snapshot of one directory entry: it owns no
// blocks and is safe to hold onto after the Folder that produced it
// has been mutated further (though the data it describes may then be
// stale — callers needing freshness must Lookup again).
type EntryInfo struct {
	Name       string
	FirstBlock uint64
	IsFile     bool
	Size       uint64
	SlotIndex  uint64
}
