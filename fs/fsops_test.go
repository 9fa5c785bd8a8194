package fs_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msaf1980/blockfs/device"
	fserrors "github.com/msaf1980/blockfs/errors"
	"github.com/msaf1980/blockfs/fs"
	"github.com/msaf1980/blockfs/testutil"
)

func TestMkdirAndReaddir(t *testing.T) {
	fsys := testutil.NewMountedFilesystem(t)

	require.NoError(t, fsys.Mkdir("/docs"))
	require.NoError(t, fsys.Mknod("/docs/readme"))

	entries, err := fsys.Readdir("/docs")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "readme", entries[0].Name)
}

func TestReaddirOrderIsHeadFirst(t *testing.T) {
	fsys := testutil.NewMountedFilesystem(t)
	require.NoError(t, fsys.Mkdir("/docs"))

	require.NoError(t, fsys.Mknod("/docs/a"))
	require.NoError(t, fsys.Mknod("/docs/b"))
	require.NoError(t, fsys.Mknod("/docs/c"))

	entries, err := fsys.Readdir("/docs")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{entries[0].Name, entries[1].Name, entries[2].Name},
		"the most recently created entry is head-inserted and so listed first")
}

func TestMkdirRejectsDuplicate(t *testing.T) {
	fsys := testutil.NewMountedFilesystem(t)
	require.NoError(t, fsys.Mkdir("/docs"))
	err := fsys.Mkdir("/docs")
	assert.ErrorIs(t, err, fserrors.ErrExists)
}

func TestMkdirRejectsMissingParent(t *testing.T) {
	fsys := testutil.NewMountedFilesystem(t)
	err := fsys.Mkdir("/a/b")
	assert.ErrorIs(t, err, fserrors.ErrNotFound)
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	fsys := testutil.NewMountedFilesystem(t)
	require.NoError(t, fsys.Mknod("/greeting"))

	payload := []byte("hello, world")
	n, err := fsys.Write("/greeting", 0, payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	buf := make([]byte, len(payload))
	n, err = fsys.Read("/greeting", 0, buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf[:n])
}

func TestReadPastEndOfFileReturnsEOF(t *testing.T) {
	fsys := testutil.NewMountedFilesystem(t)
	require.NoError(t, fsys.Mknod("/empty"))

	buf := make([]byte, 8)
	_, err := fsys.Read("/empty", 0, buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriteBeyondSixBlocksFails(t *testing.T) {
	fsys := testutil.NewMountedFilesystem(t)
	require.NoError(t, fsys.Mknod("/big"))

	blockSize := int64(testutil.IOSize * 2)
	payload := make([]byte, blockSize*6)
	n, err := fsys.Write("/big", 0, payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	_, err = fsys.Write("/big", blockSize*6, []byte("overflow"))
	assert.ErrorIs(t, err, fserrors.ErrNoSpace)
}

func TestUnlinkRejectsNonEmptyDirectory(t *testing.T) {
	fsys := testutil.NewMountedFilesystem(t)
	require.NoError(t, fsys.Mkdir("/docs"))
	require.NoError(t, fsys.Mknod("/docs/readme"))

	err := fsys.Unlink("/docs")
	assert.ErrorIs(t, err, fserrors.ErrNotEmpty)
}

func TestUnlinkFreesInodeForReuse(t *testing.T) {
	fsys := testutil.NewMountedFilesystem(t)
	require.NoError(t, fsys.Mknod("/a"))
	before := fsys.FSStat().UsedInodes

	require.NoError(t, fsys.Unlink("/a"))
	require.NoError(t, fsys.Mknod("/b"))
	after := fsys.FSStat().UsedInodes

	assert.Equal(t, before, after)
}

func TestReaddirOnFileFails(t *testing.T) {
	fsys := testutil.NewMountedFilesystem(t)
	require.NoError(t, fsys.Mknod("/a"))
	_, err := fsys.Readdir("/a")
	assert.ErrorIs(t, err, fserrors.ErrNotDir)
}

func TestReadOnlyMountRejectsWrites(t *testing.T) {
	image := newImage(t)
	dev, err := device.NewMemoryDeviceFromImage(image, testIOSize)
	require.NoError(t, err)
	fsys, err := fs.Mount(dev, fs.MountOptions{})
	require.NoError(t, err)
	require.NoError(t, fsys.Mkdir("/docs"))
	require.NoError(t, fsys.Mknod("/docs/readme"))
	require.NoError(t, fsys.Unmount())

	dev2, err := device.NewMemoryDeviceFromImage(image, testIOSize)
	require.NoError(t, err)
	ro, err := fs.Mount(dev2, fs.MountOptions{ReadOnly: true})
	require.NoError(t, err)

	assert.ErrorIs(t, ro.Mkdir("/other"), fserrors.ErrAccess)
	assert.ErrorIs(t, ro.Mknod("/docs/other"), fserrors.ErrAccess)
	_, err = ro.Write("/docs/readme", 0, []byte("x"))
	assert.ErrorIs(t, err, fserrors.ErrAccess)
	assert.ErrorIs(t, ro.Unlink("/docs/readme"), fserrors.ErrAccess)

	entries, err := ro.Readdir("/docs")
	require.NoError(t, err, "reads stay permitted on a read-only mount")
	require.Len(t, entries, 1)
	assert.Equal(t, "readme", entries[0].Name)
	require.NoError(t, ro.Unmount())
}

func TestResolverPrefixMatchBehavior(t *testing.T) {
	fsys := testutil.NewMountedFilesystem(t)
	require.NoError(t, fsys.Mkdir("/reports"))

	_, err := fsys.Stat("/rep")
	assert.ErrorIs(t, err, fserrors.ErrNotFound, "a query that is only a prefix of an existing entry's name does not resolve to that entry")

	stat, err := fsys.Stat("/reports")
	require.NoError(t, err)
	assert.Equal(t, stat.Type.String(), "dir")
}

func TestStatReportsSize(t *testing.T) {
	fsys := testutil.NewMountedFilesystem(t)
	require.NoError(t, fsys.Mknod("/a"))
	_, err := fsys.Write("/a", 0, []byte("1234567"))
	require.NoError(t, err)

	stat, err := fsys.Stat("/a")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), stat.Size)
}
