package util

import (
	"fmt"
)

// MemFile is an in-memory SizerFile, used by tests in place of a real
// on-disk image so the chain engine can be exercised without touching
// the filesystem.
type MemFile struct {
	data []byte
}

// NewMemFile returns a MemFile pre-sized to n bytes.
func NewMemFile(n int64) *MemFile {
	return &MemFile{data: make([]byte, n)}
}

func (m *MemFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("knoxvfs: negative offset %d", off)
	}
	if off >= int64(len(m.data)) {
		return 0, fmt.Errorf("knoxvfs: read past end of memfile at offset %d", off)
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, fmt.Errorf("knoxvfs: short read at offset %d: got %d of %d bytes", off, n, len(p))
	}
	return n, nil
}

func (m *MemFile) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("knoxvfs: negative offset %d", off)
	}
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	n := copy(m.data[off:end], p)
	return n, nil
}

func (m *MemFile) Close() error { return nil }

func (m *MemFile) Size() (int64, error) { return int64(len(m.data)), nil }

func (m *MemFile) Truncate(size int64) error {
	if size <= int64(len(m.data)) {
		m.data = m.data[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, m.data)
	m.data = grown
	return nil
}
