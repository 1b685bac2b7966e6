package cipher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveVerifierAndKeyDiffer(t *testing.T) {
	salt := []byte("01234567890123456789012345678901")
	verifier, err := DeriveVerifier("hunter2", salt, 0)
	require.NoError(t, err)
	key, err := DeriveKey("hunter2", salt, 0)
	require.NoError(t, err)
	require.NotEqual(t, verifier, key)
	require.Len(t, verifier, KeySize)
	require.Len(t, key, KeySize)
}

func TestDeriveVerifierDeterministic(t *testing.T) {
	salt := []byte("01234567890123456789012345678901")
	a, err := DeriveVerifier("hunter2", salt, 0)
	require.NoError(t, err)
	b, err := DeriveVerifier("hunter2", salt, 0)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestDeriveVerifierWrongPasswordDiffers(t *testing.T) {
	salt := []byte("01234567890123456789012345678901")
	a, err := DeriveVerifier("hunter2", salt, 0)
	require.NoError(t, err)
	b, err := DeriveVerifier("wrong", salt, 0)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestScryptNCapped(t *testing.T) {
	require.Equal(t, 1<<24, scryptN(255))
	require.Equal(t, 1<<10, scryptN(0))
}
