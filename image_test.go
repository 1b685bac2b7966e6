package knoxvfs_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knoxvfs/knoxvfs"
	"github.com/knoxvfs/knoxvfs/knoxfs"
)

func tempImagePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "image.knoxvfs")
}

func TestCreateOpenRoundTrip(t *testing.T) {
	path := tempImagePath(t)
	im, err := knoxvfs.Create(path, 64, "hunter2")
	require.NoError(t, err)
	require.NoError(t, im.Close())

	im2, err := knoxvfs.Open(path, "hunter2")
	require.NoError(t, err)
	defer im2.Close()

	stat := im2.StatVFS()
	require.Equal(t, uint64(64), stat.BlockCount)
}

func TestOpenWrongPasswordFails(t *testing.T) {
	path := tempImagePath(t)
	im, err := knoxvfs.Create(path, 32, "correct")
	require.NoError(t, err)
	require.NoError(t, im.Close())

	_, err = knoxvfs.Open(path, "incorrect")
	require.Error(t, err)
}

func TestAddFileWriteReadStat(t *testing.T) {
	path := tempImagePath(t)
	im, err := knoxvfs.Create(path, 64, "pw")
	require.NoError(t, err)
	defer im.Close()

	_, err = im.AddFile("/greeting.txt")
	require.NoError(t, err)

	f, err := im.OpenFile("/greeting.txt", knoxfs.AppendOnly())
	require.NoError(t, err)
	_, err = f.Write([]byte("hello, knoxvfs"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	info, err := im.Stat("/greeting.txt")
	require.NoError(t, err)
	require.Equal(t, uint64(len("hello, knoxvfs")), info.Size)

	rf, err := im.OpenFile("/greeting.txt", knoxfs.ReadOnly())
	require.NoError(t, err)
	data, err := io.ReadAll(rf)
	require.NoError(t, err)
	require.Equal(t, "hello, knoxvfs", string(data))
	require.NoError(t, rf.Close())
}

func TestNestedFoldersAndList(t *testing.T) {
	path := tempImagePath(t)
	im, err := knoxvfs.Create(path, 64, "pw")
	require.NoError(t, err)
	defer im.Close()

	_, err = im.AddFolder("/docs")
	require.NoError(t, err)
	_, err = im.AddFile("/docs/a.txt")
	require.NoError(t, err)
	_, err = im.AddFile("/docs/b.txt")
	require.NoError(t, err)

	entries, err := im.List("/docs")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestRemoveAndRename(t *testing.T) {
	path := tempImagePath(t)
	im, err := knoxvfs.Create(path, 64, "pw")
	require.NoError(t, err)
	defer im.Close()

	_, err = im.AddFile("/a.txt")
	require.NoError(t, err)
	require.NoError(t, im.Rename("/a.txt", "/b.txt"))

	_, err = im.Stat("/a.txt")
	require.Error(t, err)
	_, err = im.Stat("/b.txt")
	require.NoError(t, err)

	require.NoError(t, im.Remove("/b.txt", false))
	_, err = im.Stat("/b.txt")
	require.Error(t, err)
}

func TestTruncateIdempotentAtZero(t *testing.T) {
	path := tempImagePath(t)
	im, err := knoxvfs.Create(path, 64, "pw")
	require.NoError(t, err)
	defer im.Close()

	_, err = im.AddFile("/f.txt")
	require.NoError(t, err)
	f, err := im.OpenFile("/f.txt", knoxfs.AppendOnly())
	require.NoError(t, err)
	_, err = f.Write([]byte("some content"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, im.Truncate("/f.txt", 0))
	require.NoError(t, im.Truncate("/f.txt", 0)) // idempotent

	info, err := im.Stat("/f.txt")
	require.NoError(t, err)
	require.Equal(t, uint64(0), info.Size)
}

func TestOpenFileCreateIfMissing(t *testing.T) {
	path := tempImagePath(t)
	im, err := knoxvfs.Create(path, 64, "pw")
	require.NoError(t, err)
	defer im.Close()

	_, err = im.Stat("/new.txt")
	require.Error(t, err)

	f, err := im.OpenFile("/new.txt", knoxfs.AppendOnly().WithCreateIfMissing())
	require.NoError(t, err)
	_, err = f.Write([]byte("created on open"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	info, err := im.Stat("/new.txt")
	require.NoError(t, err)
	require.True(t, info.IsFile)
	require.Equal(t, uint64(len("created on open")), info.Size)
}

func TestOpenFileWithoutCreateIfMissingStillFails(t *testing.T) {
	path := tempImagePath(t)
	im, err := knoxvfs.Create(path, 64, "pw")
	require.NoError(t, err)
	defer im.Close()

	_, err = im.OpenFile("/missing.txt", knoxfs.ReadOnly())
	require.Error(t, err)
}

func TestOpenFileWithTruncateDiscardsContent(t *testing.T) {
	path := tempImagePath(t)
	im, err := knoxvfs.Create(path, 64, "pw")
	require.NoError(t, err)
	defer im.Close()

	_, err = im.AddFile("/f.txt")
	require.NoError(t, err)
	f, err := im.OpenFile("/f.txt", knoxfs.AppendOnly())
	require.NoError(t, err)
	_, err = f.Write([]byte("stale content"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	tf, err := im.OpenFile("/f.txt", knoxfs.ReadWrite().WithTruncate())
	require.NoError(t, err)
	require.NoError(t, tf.Close())

	info, err := im.Stat("/f.txt")
	require.NoError(t, err)
	require.Equal(t, uint64(0), info.Size)
}

func TestStatRootReportsRealSize(t *testing.T) {
	path := tempImagePath(t)
	im, err := knoxvfs.Create(path, 64, "pw")
	require.NoError(t, err)
	defer im.Close()

	before, err := im.Stat("/")
	require.NoError(t, err)
	require.Equal(t, uint64(0), before.FirstBlock)
	require.False(t, before.IsFile)

	_, err = im.AddFile("/a.txt")
	require.NoError(t, err)
	_, err = im.AddFolder("/docs")
	require.NoError(t, err)

	after, err := im.Stat("/")
	require.NoError(t, err)
	require.Greater(t, after.Size, before.Size)
}

func TestBadImagePathFails(t *testing.T) {
	_, err := knoxvfs.Open(filepath.Join(os.TempDir(), "does-not-exist.knoxvfs"), "pw")
	require.Error(t, err)
}
