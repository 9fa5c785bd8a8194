package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuperblockRoundTrip(t *testing.T) {
	layout := computeRegionLayout()
	sb := onDiskSuperblock{
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

	got, err := unmarshalSuperblock(sb.marshal())
	require.NoError(t, err)
	assert.Equal(t, sb, got)
}

func TestInodeRoundTrip(t *testing.T) {
	in := onDiskInode{Ino: 3, Size: 128, Link: 1, Ftype: FileTypeReg, DirCount: 0}
	in.BlockPointer = [blocksPerFileInode]int32{0, 1, -1, -1, -1, -1}

	got, err := unmarshalInode(in.marshal())
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestDentryRoundTrip(t *testing.T) {
	d, err := newOnDiskDentry("report.txt", 7, FileTypeReg)
	require.NoError(t, err)

	got, err := unmarshalDentry(d.marshal())
	require.NoError(t, err)
	assert.Equal(t, uint32(7), got.Ino)
	assert.Equal(t, FileTypeReg, got.Ftype)
	assert.Equal(t, "report.txt", got.name())
}

func TestDentryNameTooLong(t *testing.T) {
	longName := make([]byte, MaxNameLength+1)
	for i := range longName {
		longName[i] = 'a'
	}
	_, err := newOnDiskDentry(string(longName), 1, FileTypeReg)
	assert.Error(t, err)
}

func TestDentryNameExactlyMaxLength(t *testing.T) {
	name := make([]byte, MaxNameLength)
	for i := range name {
		name[i] = 'x'
	}
	d, err := newOnDiskDentry(string(name), 1, FileTypeReg)
	require.NoError(t, err)
	assert.Equal(t, string(name), d.name())
}
