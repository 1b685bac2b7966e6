package cipher

import (
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// scryptN maps the header's single rounds byte onto scrypt's CPU/memory
// cost parameter N = 2^(10+rounds), capped well short of overflow.
func scryptN(rounds byte) int {
	exp := 10 + int(rounds)
	if exp > 24 {
		exp = 24
	}
	return 1 << uint(exp)
}

const (
	scryptR = 8
	scryptP = 1
)

// DeriveVerifier derives the 32-byte password-hash stored in the
// header: used only to authenticate Open, never as key material.
func DeriveVerifier(password string, salt []byte, rounds byte) ([]byte, error) {
	return deriveScrypt(password, salt, rounds, "verifier")
}

// DeriveKey derives the symmetric stream key from the password. It
// uses a distinct info tag from DeriveVerifier so a leaked header hash
// cannot be replayed as key material.
func DeriveKey(password string, salt []byte, rounds byte) ([]byte, error) {
	return deriveScrypt(password, salt, rounds, "stream-key")
}

func deriveScrypt(password string, salt []byte, rounds byte, info string) ([]byte, error) {
	combinedSalt := append(append([]byte{}, salt...), []byte(info)...)
	key, err := scrypt.Key([]byte(password), combinedSalt, scryptN(rounds), scryptR, scryptP, KeySize)
	if err != nil {
		return nil, fmt.Errorf("cipher: scrypt: %w", err)
	}
	return key, nil
}
