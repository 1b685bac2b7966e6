package knoxvfs

import (
	"github.com/knoxvfs/knoxvfs/cipher"
	"github.com/knoxvfs/knoxvfs/layout"
)

type createConfig struct {
	blockSize uint64
	cipherID  cipher.ID
	rounds    byte
}

func defaultConfig() createConfig {
	return createConfig{
		blockSize: layout.DefaultBlockSize,
		cipherID:  cipher.XChaCha20,
		rounds:    4,
	}
}

// CreateOption customizes a newly created image.
type CreateOption func(*createConfig)

// WithBlockSize overrides the default fixed block size.
func WithBlockSize(n uint64) CreateOption {
	return func(c *createConfig) { c.blockSize = n }
}

// WithCipher selects which registered cipher.Stream protects the
// image body.
func WithCipher(id cipher.ID) CreateOption {
	return func(c *createConfig) { c.cipherID = id }
}

// WithRounds sets the header's scrypt cost-parameter byte.
func WithRounds(rounds byte) CreateOption {
	return func(c *createConfig) { c.rounds = rounds }
}
