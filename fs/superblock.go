package fs

import (
	"github.com/hashicorp/go-multierror"
	"github.com/noxer/bytewriter"

	"github.com/msaf1980/blockfs/device"
	fserrors "github.com/msaf1980/blockfs/errors"
)

func superblockFromLayout(layout regionLayout) onDiskSuperblock {
	return onDiskSuperblock{
		Magic:             DiskMagic,
		SuperblockOffset:  layout.SuperblockOffset,
		SuperblockBlocks:  layout.SuperblockBlocks,
		InodeBitmapOffset: layout.InodeBitmapOffset,
		InodeBitmapBlocks: layout.InodeBitmapBlocks,
		DataBitmapOffset:  layout.DataBitmapOffset,
		DataBitmapBlocks:  layout.DataBitmapBlocks,
		InodeTableOffset:  layout.InodeTableOffset,
		InodeTableBlocks:  layout.InodeTableBlocks,
		DataRegionOffset:  layout.DataRegionOffset,
		DataRegionBlocks:  layout.DataRegionBlocks,
		MaxIno:            layout.MaxIno,
		MaxData:           layout.MaxData,
		RootIno:           layout.RootIno,
	}
}

func layoutFromSuperblock(sb onDiskSuperblock) regionLayout {
	return regionLayout{
		SuperblockOffset:  sb.SuperblockOffset,
		SuperblockBlocks:  sb.SuperblockBlocks,
		InodeBitmapOffset: sb.InodeBitmapOffset,
		InodeBitmapBlocks: sb.InodeBitmapBlocks,
		DataBitmapOffset:  sb.DataBitmapOffset,
		DataBitmapBlocks:  sb.DataBitmapBlocks,
		InodeTableOffset:  sb.InodeTableOffset,
		InodeTableBlocks:  sb.InodeTableBlocks,
		DataRegionOffset:  sb.DataRegionOffset,
		DataRegionBlocks:  sb.DataRegionBlocks,
		MaxIno:            sb.MaxIno,
		MaxData:           sb.MaxData,
		RootIno:           sb.RootIno,
	}
}

// Format lays out a fresh, empty filesystem on driver: it writes the
// superblock, zeroes both bitmaps (claiming only the root inode's bit), and
// writes the root directory's inode. The device is not left mounted;
// callers that want to use the image immediately should call Mount next,
// which would simply find the magic number already valid and skip
// reformatting.
func Format(driver device.Driver) error {
	ioSize, err := driver.Ioctl(device.ReqDeviceIOSize)
	if err != nil {
		return fserrors.ErrIO.Wrap(err)
	}
	totalSize, err := driver.Ioctl(device.ReqDeviceSize)
	if err != nil {
		return fserrors.ErrIO.Wrap(err)
	}

	bio := newBlockIO(driver, ioSize)
	_, err = formatOnto(bio, ioSize, totalSize)
	return err
}

// formatOnto writes a fresh superblock, zeroed bitmaps (claiming only the
// root inode's bit), and the root directory's inode through bio, and
// returns the region layout it just wrote.
func formatOnto(bio *blockIO, ioSize, totalSize int64) (regionLayout, error) {
	blockSize := blockSizeFromIOSize(ioSize)
	layout := computeRegionLayout()

	required := int64(layout.DataRegionOffset+layout.DataRegionBlocks) * int64(blockSize)
	if totalSize < required {
		return regionLayout{}, fserrors.ErrNoSpace.WithMessage("device is smaller than the fixed on-disk layout requires")
	}

	inodeBitmapBuf := make([]byte, blockSize)
	dataBitmapBuf := make([]byte, blockSize)
	inodeBitmap := newAllocator(inodeBitmapBuf, layout.MaxIno)
	if _, ferr := inodeBitmap.allocate(); ferr != nil {
		return regionLayout{}, ferr
	}

	sb := superblockFromLayout(layout)
	superblockBuf := make([]byte, blockSize)
	w := bytewriter.New(superblockBuf)
	if _, werr := w.Write(sb.marshal()); werr != nil {
		return regionLayout{}, fserrors.ErrIO.Wrap(werr)
	}

	if err := bio.writeAt(int64(layout.SuperblockOffset)*int64(blockSize), superblockBuf); err != nil {
		return regionLayout{}, fserrors.ErrIO.Wrap(err)
	}
	if err := bio.writeAt(int64(layout.InodeBitmapOffset)*int64(blockSize), inodeBitmapBuf); err != nil {
		return regionLayout{}, fserrors.ErrIO.Wrap(err)
	}
	if err := bio.writeAt(int64(layout.DataBitmapOffset)*int64(blockSize), dataBitmapBuf); err != nil {
		return regionLayout{}, fserrors.ErrIO.Wrap(err)
	}

	rootInode := onDiskInode{Ino: layout.RootIno, Size: 0, Link: 1, Ftype: FileTypeDir, DirCount: 0}
	for i := range rootInode.BlockPointer {
		rootInode.BlockPointer[i] = -1
	}
	if err := bio.writeAt(layout.inodeOffset(blockSize, layout.RootIno), rootInode.marshal()); err != nil {
		return regionLayout{}, fserrors.ErrIO.Wrap(err)
	}

	return layout, nil
}

// Mount opens driver, reads its superblock, and hydrates the root
// directory. A missing or mismatched magic number is treated as an
// unformatted device, exactly as the original mount routine's is_init
// path does: the device is formatted in place before mounting continues,
// rather than rejected. A driver whose block size (twice its I/O unit) is
// smaller than one block of InodesPerBlock packed inodes fails with
// ErrInvalid.
func Mount(driver device.Driver, options MountOptions) (*Filesystem, error) {
	ioSize, err := driver.Ioctl(device.ReqDeviceIOSize)
	if err != nil {
		return nil, fserrors.ErrIO.Wrap(err)
	}
	blockSize := blockSizeFromIOSize(ioSize)
	if blockSize < InodesPerBlock*onDiskInodeSize {
		return nil, fserrors.ErrInvalid.WithMessage("block size is too small to hold a full block of inodes")
	}
	bio := newBlockIO(driver, ioSize)

	sbBuf := make([]byte, blockSize)
	if err := bio.readAt(0, sbBuf); err != nil {
		return nil, fserrors.ErrIO.Wrap(err)
	}
	sb, err := unmarshalSuperblock(sbBuf)
	if err != nil {
		return nil, fserrors.ErrIO.Wrap(err)
	}

	var layout regionLayout
	if sb.Magic != DiskMagic {
		totalSize, terr := driver.Ioctl(device.ReqDeviceSize)
		if terr != nil {
			return nil, fserrors.ErrIO.Wrap(terr)
		}
		layout, err = formatOnto(bio, ioSize, totalSize)
		if err != nil {
			return nil, err
		}
	} else {
		layout = layoutFromSuperblock(sb)
	}

	inodeBitmapBuf := make([]byte, blockSize)
	if err := bio.readAt(int64(layout.InodeBitmapOffset)*int64(blockSize), inodeBitmapBuf); err != nil {
		return nil, fserrors.ErrIO.Wrap(err)
	}
	dataBitmapBuf := make([]byte, blockSize)
	if err := bio.readAt(int64(layout.DataBitmapOffset)*int64(blockSize), dataBitmapBuf); err != nil {
		return nil, fserrors.ErrIO.Wrap(err)
	}

	fsys := &Filesystem{
		driver:      driver,
		io:          bio,
		layout:      layout,
		blockSize:   blockSize,
		inodeBitmap: newAllocator(inodeBitmapBuf, layout.MaxIno),
		dataBitmap:  newAllocator(dataBitmapBuf, layout.MaxData),
		options:     options,
	}

	fsys.root = &dentryNode{name: "", ino: layout.RootIno, ftype: FileTypeDir}
	if _, err := fsys.readInode(fsys.root); err != nil {
		return nil, err
	}
	return fsys, nil
}

// Unmount flushes the entire object cache to disk and closes the
// underlying driver. On a read-only mount, nothing is written back; the
// driver is simply closed.
func (fsys *Filesystem) Unmount() error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if fsys.options.ReadOnly {
		if err := fsys.driver.Close(); err != nil {
			return fserrors.ErrIO.Wrap(err)
		}
		return nil
	}

	var result *multierror.Error

	if fsys.root.node != nil {
		if err := fsys.syncInode(fsys.root.node); err != nil {
			result = multierror.Append(result, err)
		}
	}

	sb := superblockFromLayout(fsys.layout)
	if err := fsys.io.writeAt(int64(fsys.layout.SuperblockOffset)*int64(fsys.blockSize), sb.marshal()); err != nil {
		result = multierror.Append(result, fserrors.ErrIO.Wrap(err))
	}
	if err := fsys.io.writeAt(int64(fsys.layout.InodeBitmapOffset)*int64(fsys.blockSize), fsys.inodeBitmap.data()); err != nil {
		result = multierror.Append(result, fserrors.ErrIO.Wrap(err))
	}
	if err := fsys.io.writeAt(int64(fsys.layout.DataBitmapOffset)*int64(fsys.blockSize), fsys.dataBitmap.data()); err != nil {
		result = multierror.Append(result, fserrors.ErrIO.Wrap(err))
	}

	if err := fsys.driver.Close(); err != nil {
		result = multierror.Append(result, fserrors.ErrIO.Wrap(err))
	}
	return result.ErrorOrNil()
}
