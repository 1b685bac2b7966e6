package cipher

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

const chachaBlockSize = 64

// xchacha20Stream implements Stream over golang.org/x/crypto/chacha20
// in its extended-nonce (XChaCha20) mode. Seekability comes from
// chacha20.Cipher's SetCounter: the keystream at byte offset off is
// fully determined by key, nonce and block counter off/64, with the
// first off%64 keystream bytes discarded.
type xchacha20Stream struct {
	key   [chacha20.KeySize]byte
	nonce [chacha20.NonceSizeX]byte
}

func newXChaCha20Stream(key []byte) (*xchacha20Stream, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("cipher: xchacha20 needs a %d-byte key, got %d", KeySize, len(key))
	}
	s := &xchacha20Stream{}
	copy(s.key[:], key)
	// Derive a fixed nonce from the key so every image gets a distinct
	// keystream without needing extra header bytes for it.
	sum := sha256.Sum256(key)
	copy(s.nonce[:], sum[:chacha20.NonceSizeX])
	return s, nil
}

func (s *xchacha20Stream) Transform(dst, src []byte, off uint64) {
	segment := off / chachaBlockSize
	skip := int(off % chachaBlockSize)

	c, err := chacha20.NewUnauthenticatedCipher(s.key[:], s.nonce[:])
	if err != nil {
		// key and nonce are fixed-size and validated at construction.
		panic(fmt.Sprintf("cipher: chacha20: %v", err))
	}
	c.SetCounter(uint32(segment))

	if skip > 0 {
		discard := make([]byte, skip)
		c.XORKeyStream(discard, discard)
	}
	c.XORKeyStream(dst, src)
}
