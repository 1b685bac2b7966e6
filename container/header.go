// Package container implements the three leaf components that sit
// between the host file and the chain engine: the unencrypted Header,
// the Superblock (block count + bitmap + free counter) and the
// Allocator built on top of it, plus the CipherStream that the chain
// engine reads and writes through.
package container

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"github.com/knoxvfs/knoxvfs/cipher"
	"github.com/knoxvfs/knoxvfs/layout"
	"github.com/knoxvfs/knoxvfs/util"
	"github.com/knoxvfs/knoxvfs/vfserrors"
)

// Header is the fixed-size, unencrypted prefix of a knoxvfs image:
// four 64-bit IV words, a round-count byte, a cipher-id byte and a
// 32-byte password verifier. It is read-only after creation.
type Header struct {
	IV           [layout.IVWords]uint64
	Rounds       byte
	CipherID     cipher.ID
	PasswordHash [layout.PasswordHashSize]byte
}

// ivBytes returns the header's IV words packed big-endian, the salt
// fed to password-based key derivation.
func (h *Header) ivBytes() []byte {
	b := make([]byte, layout.IVSize)
	for i, word := range h.IV {
		binary.BigEndian.PutUint64(b[i*layout.IVWordBytes:], word)
	}
	return b
}

func (h *Header) toBytes() []byte {
	b := make([]byte, layout.HeaderSize)
	copy(b[0:layout.IVSize], h.ivBytes())
	b[layout.IVSize] = h.Rounds
	b[layout.IVSize+layout.RoundsFieldSize] = byte(h.CipherID)
	copy(b[layout.IVSize+layout.RoundsFieldSize+layout.CipherIDFieldSize:], h.PasswordHash[:])
	return b
}

func headerFromBytes(b []byte) (*Header, error) {
	if len(b) < layout.HeaderSize {
		return nil, fmt.Errorf("container: header region is %d bytes, need %d", len(b), layout.HeaderSize)
	}
	h := &Header{}
	for i := 0; i < layout.IVWords; i++ {
		h.IV[i] = binary.BigEndian.Uint64(b[i*layout.IVWordBytes:])
	}
	h.Rounds = b[layout.IVSize]
	h.CipherID = cipher.ID(b[layout.IVSize+layout.RoundsFieldSize])
	copy(h.PasswordHash[:], b[layout.IVSize+layout.RoundsFieldSize+layout.CipherIDFieldSize:])
	return h, nil
}

// CreateHeader writes a fresh header to f at offset 0 and returns it
// along with the derived stream key (never persisted). It fails with
// BadHeader if cipherID names no registered cipher.
func CreateHeader(f util.File, cipherID cipher.ID, rounds byte, password string) (*Header, []byte, error) {
	if !cipher.Known(cipherID) {
		return nil, nil, vfserrors.New(vfserrors.BadHeader, "CreateHeader", fmt.Errorf("unknown cipher id %d", cipherID))
	}

	h := &Header{Rounds: rounds, CipherID: cipherID}
	ivRaw := make([]byte, layout.IVSize)
	if _, err := rand.Read(ivRaw); err != nil {
		return nil, nil, vfserrors.New(vfserrors.BadHeader, "CreateHeader", fmt.Errorf("generating IV: %w", err))
	}
	for i := 0; i < layout.IVWords; i++ {
		h.IV[i] = binary.BigEndian.Uint64(ivRaw[i*layout.IVWordBytes:])
	}

	salt := h.ivBytes()
	verifier, err := cipher.DeriveVerifier(password, salt, rounds)
	if err != nil {
		return nil, nil, vfserrors.New(vfserrors.BadHeader, "CreateHeader", err)
	}
	copy(h.PasswordHash[:], verifier)

	key, err := cipher.DeriveKey(password, salt, rounds)
	if err != nil {
		return nil, nil, vfserrors.New(vfserrors.BadHeader, "CreateHeader", err)
	}

	if _, err := f.WriteAt(h.toBytes(), 0); err != nil {
		return nil, nil, vfserrors.New(vfserrors.BadHeader, "CreateHeader", fmt.Errorf("writing header: %w", err))
	}

	return h, key, nil
}

// ReadHeader reads and authenticates the header at offset 0. It fails
// BadHeader on a truncated read or unknown cipher id, and AuthFailed
// if password does not match the stored verifier. No decryption of
// the remainder of the image is attempted before this succeeds.
func ReadHeader(f util.File, password string) (*Header, []byte, error) {
	raw := make([]byte, layout.HeaderSize)
	n, err := f.ReadAt(raw, 0)
	if err != nil || n < layout.HeaderSize {
		return nil, nil, vfserrors.New(vfserrors.BadHeader, "ReadHeader", fmt.Errorf("short header read: %d of %d bytes: %v", n, layout.HeaderSize, err))
	}

	h, err := headerFromBytes(raw)
	if err != nil {
		return nil, nil, vfserrors.New(vfserrors.BadHeader, "ReadHeader", err)
	}
	if !cipher.Known(h.CipherID) {
		return nil, nil, vfserrors.New(vfserrors.BadHeader, "ReadHeader", fmt.Errorf("unknown cipher id %d", h.CipherID))
	}

	salt := h.ivBytes()
	verifier, err := cipher.DeriveVerifier(password, salt, h.Rounds)
	if err != nil {
		return nil, nil, vfserrors.New(vfserrors.BadHeader, "ReadHeader", err)
	}
	if subtle.ConstantTimeCompare(verifier, h.PasswordHash[:]) != 1 {
		return nil, nil, vfserrors.New(vfserrors.AuthFailed, "ReadHeader", nil)
	}

	key, err := cipher.DeriveKey(password, salt, h.Rounds)
	if err != nil {
		return nil, nil, vfserrors.New(vfserrors.BadHeader, "ReadHeader", err)
	}

	return h, key, nil
}
