package container

import (
	"github.com/knoxvfs/knoxvfs/cipher"
	"github.com/knoxvfs/knoxvfs/layout"
	"github.com/knoxvfs/knoxvfs/util"
)

// CipherStream adapts a raw util.File into a logically-addressed,
// transparently encrypted byte stream: offset 0 of a CipherStream is
// the first byte after the header, not the first byte of the file.
// Every Read/WriteAt round-trips through the configured cipher.Stream,
// which the package contract guarantees is seek-safe.
type CipherStream struct {
	f      util.File
	stream cipher.Stream
}

// NewCipherStream wraps f, translating logical offsets by HeaderSize
// and running every transfer through stream.
func NewCipherStream(f util.File, stream cipher.Stream) *CipherStream {
	return &CipherStream{f: f, stream: stream}
}

// ReadAt reads len(p) plaintext bytes starting at logical offset off.
func (cs *CipherStream) ReadAt(p []byte, off int64) (int, error) {
	n, err := cs.f.ReadAt(p, off+int64(layout.HeaderSize))
	if n > 0 {
		cs.stream.Transform(p[:n], p[:n], uint64(off))
	}
	return n, err
}

// WriteAt encrypts p and writes it starting at logical offset off.
// The plaintext in p is left untouched; encryption happens into a
// scratch buffer so callers can safely reuse p afterward.
func (cs *CipherStream) WriteAt(p []byte, off int64) (int, error) {
	buf := make([]byte, len(p))
	cs.stream.Transform(buf, p, uint64(off))
	return cs.f.WriteAt(buf, off+int64(layout.HeaderSize))
}

// Close closes the underlying file.
func (cs *CipherStream) Close() error { return cs.f.Close() }
