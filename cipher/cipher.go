// Package cipher supplies the seekable stream-cipher collaborator the
// spec describes only by contract: Transform(plaintext<->ciphertext,
// absolute_offset, length). Two concrete ciphers are registered:
// AES-256-CTR on the standard library's crypto/aes and crypto/cipher,
// and XChaCha20 on golang.org/x/crypto/chacha20; cipher id 0 ("none")
// is kept for test fixtures
// that want to inspect a container's raw bytes.
package cipher

import "fmt"

// ID identifies which cipher a header selects, matching spec.md's
// 0 = none, 1..17 = named ciphers scheme.
type ID byte

const (
	// None performs no transform at all; used only by tests that need
	// a plaintext-on-disk fixture.
	None ID = 0
	// AES256CTR selects AES-256 in CTR mode.
	AES256CTR ID = 1
	// XChaCha20 selects the XChaCha20 stream cipher.
	XChaCha20 ID = 2
)

// KeySize is the symmetric key length, in bytes, every registered
// cipher in this package expects.
const KeySize = 32

// Stream is a seekable symmetric stream cipher: the output at
// absolute offset p depends only on p and the key, never on the
// order or history of prior Transform calls.
type Stream interface {
	// Transform writes len(src) transformed bytes into dst, as though
	// src began at absolute byte offset off within the keystream.
	// dst and src may be the same slice.
	Transform(dst, src []byte, off uint64)
}

// New constructs the Stream for the given id and key. It returns
// BadHeader-class information via a plain error; callers translate
// that into vfserrors.BadHeader.
func New(id ID, key []byte) (Stream, error) {
	switch id {
	case None:
		return noneStream{}, nil
	case AES256CTR:
		return newAESCTRStream(key)
	case XChaCha20:
		return newXChaCha20Stream(key)
	default:
		return nil, fmt.Errorf("cipher: unknown cipher id %d", id)
	}
}

// Known reports whether id names a cipher this package can construct.
func Known(id ID) bool {
	switch id {
	case None, AES256CTR, XChaCha20:
		return true
	default:
		return false
	}
}

type noneStream struct{}

func (noneStream) Transform(dst, src []byte, _ uint64) {
	if len(src) == 0 {
		return
	}
	if &dst[0] != &src[0] {
		copy(dst, src)
	}
}
