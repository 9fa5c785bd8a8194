// Package testutil provides shared fixtures for fs package tests: a
// disposable in-memory device, freshly formatted and mounted.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msaf1980/blockfs/device"
	"github.com/msaf1980/blockfs/fs"
)

// IOSize is the native I/O unit used by every in-memory test fixture. It
// gives a 1024-byte block, the smallest power of two that holds a full
// block of 16 packed inodes (and so at least one packed dentry), which
// Mount requires.
const IOSize = 512

// NewMountedFilesystem formats a fresh in-memory image and mounts it,
// returning the filesystem ready for use.
func NewMountedFilesystem(t *testing.T) *fs.Filesystem {
	t.Helper()

	blockSize := IOSize * 2
	totalBlocks := fs.SuperblockBlocks + fs.InodeBitmapBlocks + fs.DataBitmapBlocks + fs.InodeTableBlocks + fs.DataRegionBlocks
	size := int64(blockSize * totalBlocks)

	dev, err := device.NewMemoryDevice(size, IOSize)
	require.NoError(t, err)

	require.NoError(t, fs.Format(dev))

	fsys, err := fs.Mount(dev, fs.MountOptions{})
	require.NoError(t, err)
	return fsys
}
