// Package host wires the device and fs packages together behind the small
// surface a caller on the host machine actually needs: open an image file,
// format it, mount it, and get back a ready-to-use *fs.Filesystem.
package host

import (
	"github.com/msaf1980/blockfs/device"
	"github.com/msaf1980/blockfs/fs"
)

// DefaultIOSize is the native I/O unit size used for file-backed images
// when the caller doesn't have a more specific value from the underlying
// storage. The filesystem block size is always twice this.
const DefaultIOSize = 512

// ImageSize returns the minimum file size, in bytes, a freshly formatted
// image needs for the given native I/O unit size.
func ImageSize(ioSize int64) int64 {
	blockSize := int64(ioSize) * 2
	return blockSize * int64(fs.SuperblockBlocks+fs.InodeBitmapBlocks+fs.DataBitmapBlocks+fs.InodeTableBlocks+fs.DataRegionBlocks)
}

// FormatFile creates (or truncates up) the file at path and formats it as a
// fresh, empty filesystem image.
func FormatFile(path string, ioSize int64) error {
	minSize := ImageSize(ioSize)
	dev, err := device.OpenFileDevice(path, ioSize, minSize)
	if err != nil {
		return err
	}
	defer dev.Close()
	return fs.Format(dev)
}

// MountFile opens the image file at path and mounts it.
func MountFile(path string, ioSize int64, options fs.MountOptions) (*fs.Filesystem, error) {
	dev, err := device.OpenFileDevice(path, ioSize, ImageSize(ioSize))
	if err != nil {
		return nil, err
	}
	return fs.Mount(dev, options)
}
