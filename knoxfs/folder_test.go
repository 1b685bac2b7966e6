package knoxfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knoxvfs/knoxvfs/vfserrors"
)

func newTestRootFolder(t *testing.T) (*Context, *Folder) {
	t.Helper()
	ctx := newTestContext(32, 64)
	root, err := CreateFolder(ctx, ReadWrite())
	require.NoError(t, err)
	return ctx, root
}

func TestAddAndLookup(t *testing.T) {
	_, root := newTestRootFolder(t)
	info, err := root.Add("hello.txt", true)
	require.NoError(t, err)
	require.Equal(t, "hello.txt", info.Name)
	require.True(t, info.IsFile)

	found, err := root.Lookup("hello.txt")
	require.NoError(t, err)
	require.Equal(t, info.FirstBlock, found.FirstBlock)
}

func TestAddDuplicateNameRejected(t *testing.T) {
	_, root := newTestRootFolder(t)
	_, err := root.Add("dup", true)
	require.NoError(t, err)
	_, err = root.Add("dup", true)
	require.True(t, vfserrors.Is(err, vfserrors.AlreadyExists))
}

func TestAddIllegalName(t *testing.T) {
	_, root := newTestRootFolder(t)
	_, err := root.Add("", true)
	require.True(t, vfserrors.Is(err, vfserrors.IllegalFilename))
	_, err = root.Add("a/b", true)
	require.True(t, vfserrors.Is(err, vfserrors.IllegalFilename))
}

func TestLookupMissingIsNotFound(t *testing.T) {
	_, root := newTestRootFolder(t)
	_, err := root.Lookup("nope")
	require.True(t, vfserrors.Is(err, vfserrors.NotFound))
}

func TestTombstoneSlotReusedBeforeExtending(t *testing.T) {
	_, root := newTestRootFolder(t)
	a, err := root.Add("a", true)
	require.NoError(t, err)
	_, err = root.Add("b", true)
	require.NoError(t, err)

	require.NoError(t, root.Remove("a", false))

	c, err := root.Add("c", true)
	require.NoError(t, err)
	require.Equal(t, a.SlotIndex, c.SlotIndex)
}

func TestRenameInPlace(t *testing.T) {
	_, root := newTestRootFolder(t)
	info, err := root.Add("old", true)
	require.NoError(t, err)

	require.NoError(t, root.RenameInPlace("old", "new"))
	found, err := root.Lookup("new")
	require.NoError(t, err)
	require.Equal(t, info.FirstBlock, found.FirstBlock)

	_, err = root.Lookup("old")
	require.True(t, vfserrors.Is(err, vfserrors.NotFound))
}

func TestRenameAcrossFoldersKeepsSameFirstBlock(t *testing.T) {
	ctx, root := newTestRootFolder(t)
	srcInfo, err := root.Add("src-folder", false)
	require.NoError(t, err)
	dstInfo, err := root.Add("dst-folder", false)
	require.NoError(t, err)

	src, err := OpenFolder(ctx, srcInfo.FirstBlock, ReadWrite())
	require.NoError(t, err)
	dst, err := OpenFolder(ctx, dstInfo.FirstBlock, ReadWrite())
	require.NoError(t, err)

	child, err := src.Add("movable.txt", true)
	require.NoError(t, err)

	require.NoError(t, src.RenameAcrossFolders("movable.txt", dst, "moved.txt"))

	_, err = src.Lookup("movable.txt")
	require.True(t, vfserrors.Is(err, vfserrors.NotFound))

	found, err := dst.Lookup("moved.txt")
	require.NoError(t, err)
	require.Equal(t, child.FirstBlock, found.FirstBlock)
}

func TestRemoveNonEmptyFolderRequiresRecursive(t *testing.T) {
	ctx, root := newTestRootFolder(t)
	info, err := root.Add("dir", false)
	require.NoError(t, err)
	child, err := OpenFolder(ctx, info.FirstBlock, ReadWrite())
	require.NoError(t, err)
	_, err = child.Add("inner.txt", true)
	require.NoError(t, err)

	err = root.Remove("dir", false)
	require.True(t, vfserrors.Is(err, vfserrors.FolderNotEmpty))

	require.NoError(t, root.Remove("dir", true))
	_, err = root.Lookup("dir")
	require.True(t, vfserrors.Is(err, vfserrors.NotFound))
}

func TestIterateReturnsOnlyAliveEntries(t *testing.T) {
	_, root := newTestRootFolder(t)
	_, err := root.Add("a", true)
	require.NoError(t, err)
	_, err = root.Add("b", true)
	require.NoError(t, err)
	require.NoError(t, root.Remove("a", false))

	entries, err := root.Iterate()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "b", entries[0].Name)
}

func TestLookupCacheInvalidatedOnMutation(t *testing.T) {
	_, root := newTestRootFolder(t)
	_, err := root.Add("cached", true)
	require.NoError(t, err)
	_, err = root.Lookup("cached") // populate cache
	require.NoError(t, err)

	require.NoError(t, root.Remove("cached", false))
	_, err = root.Lookup("cached")
	require.True(t, vfserrors.Is(err, vfserrors.NotFound))
}
