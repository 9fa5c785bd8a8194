package fs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msaf1980/blockfs/device"
	"github.com/msaf1980/blockfs/fs"
)

const testIOSize = 512

func newImage(t *testing.T) []byte {
	t.Helper()
	blockSize := testIOSize * 2
	totalBlocks := fs.SuperblockBlocks + fs.InodeBitmapBlocks + fs.DataBitmapBlocks + fs.InodeTableBlocks + fs.DataRegionBlocks
	image := make([]byte, blockSize*totalBlocks)

	dev, err := device.NewMemoryDeviceFromImage(image, testIOSize)
	require.NoError(t, err)
	require.NoError(t, fs.Format(dev))
	return image
}

func TestRemountSurvivesAcrossUnmount(t *testing.T) {
	image := newImage(t)

	dev, err := device.NewMemoryDeviceFromImage(image, testIOSize)
	require.NoError(t, err)
	fsys, err := fs.Mount(dev, fs.MountOptions{})
	require.NoError(t, err)

	require.NoError(t, fsys.Mkdir("/docs"))
	require.NoError(t, fsys.Mknod("/docs/readme"))
	_, err = fsys.Write("/docs/readme", 0, []byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, fsys.Unmount())

	dev2, err := device.NewMemoryDeviceFromImage(image, testIOSize)
	require.NoError(t, err)
	fsys2, err := fs.Mount(dev2, fs.MountOptions{})
	require.NoError(t, err)

	entries, err := fsys2.Readdir("/docs")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "readme", entries[0].Name)

	buf := make([]byte, len("persisted"))
	n, err := fsys2.Read("/docs/readme", 0, buf)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(buf[:n]))
}

func TestMountAutoFormatsUnformattedImage(t *testing.T) {
	blockSize := testIOSize * 2
	totalBlocks := fs.SuperblockBlocks + fs.InodeBitmapBlocks + fs.DataBitmapBlocks + fs.InodeTableBlocks + fs.DataRegionBlocks
	image := make([]byte, blockSize*totalBlocks)

	dev, err := device.NewMemoryDeviceFromImage(image, testIOSize)
	require.NoError(t, err)

	fsys, err := fs.Mount(dev, fs.MountOptions{})
	require.NoError(t, err, "a zero/bad magic number is treated as an unformatted device and formatted in place")

	stat := fsys.FSStat()
	assert.Equal(t, uint32(1), stat.UsedInodes, "formatting claims the root inode's bit")

	require.NoError(t, fsys.Mkdir("/docs"))
	entries, err := fsys.Readdir("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "docs", entries[0].Name)
}

func TestMountRejectsDeviceSmallerThanLayout(t *testing.T) {
	dev, err := device.NewMemoryDevice(testIOSize*2, testIOSize)
	require.NoError(t, err)

	_, err = fs.Mount(dev, fs.MountOptions{})
	assert.Error(t, err)
}

func TestFSStatTracksAllocations(t *testing.T) {
	image := newImage(t)
	dev, err := device.NewMemoryDeviceFromImage(image, testIOSize)
	require.NoError(t, err)
	fsys, err := fs.Mount(dev, fs.MountOptions{})
	require.NoError(t, err)

	before := fsys.FSStat()
	require.NoError(t, fsys.Mkdir("/a"))
	after := fsys.FSStat()

	assert.Equal(t, before.UsedInodes+1, after.UsedInodes)
}
