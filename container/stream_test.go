package container

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knoxvfs/knoxvfs/cipher"
	"github.com/knoxvfs/knoxvfs/layout"
	"github.com/knoxvfs/knoxvfs/util"
)

func TestCipherStreamRoundTripAndHeaderOffset(t *testing.T) {
	f := util.NewMemFile(int64(layout.HeaderSize) + 4096)
	key := make([]byte, cipher.KeySize)
	stream, err := cipher.New(cipher.AES256CTR, key)
	require.NoError(t, err)
	cs := NewCipherStream(f, stream)

	payload := []byte("hello knoxvfs")
	_, err = cs.WriteAt(payload, 10)
	require.NoError(t, err)

	out := make([]byte, len(payload))
	_, err = cs.ReadAt(out, 10)
	require.NoError(t, err)
	require.Equal(t, payload, out)

	// The raw file bytes at the equivalent absolute offset must NOT
	// equal the plaintext: the stream is encrypted on disk.
	raw := make([]byte, len(payload))
	_, err = f.ReadAt(raw, 10+int64(layout.HeaderSize))
	require.NoError(t, err)
	require.NotEqual(t, payload, raw)
}
