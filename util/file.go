// Package util defines the minimal file abstraction shared by the
// container and filesystem layers, adapted from go-diskfs's util.File.
package util

import "io"

// File is the interface the container layer needs from its backing
// store. *os.File satisfies it directly; tests back it with an
// in-memory implementation instead of touching disk.
type File interface {
	io.ReaderAt
	io.WriterAt
	Close() error
}

// SizerFile is a File that also knows its own size and can be resized;
// MemFile implements it.
type SizerFile interface {
	File
	Size() (int64, error)
	Truncate(size int64) error
}
