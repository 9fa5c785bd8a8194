package fs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// onDiskSuperblock is the exact byte-for-byte layout written to block 0. It
// mirrors the original layout's superblock descriptor: usage counter, every
// region's offset and block count, and the two derived capacity limits plus
// the root inode number.
type onDiskSuperblock struct {
	Magic             uint32
	UsageBytes        uint32
	SuperblockOffset  uint32
	SuperblockBlocks  uint32
	InodeBitmapOffset uint32
	InodeBitmapBlocks uint32
	DataBitmapOffset  uint32
	DataBitmapBlocks  uint32
	InodeTableOffset  uint32
	InodeTableBlocks  uint32
	DataRegionOffset  uint32
	DataRegionBlocks  uint32
	MaxIno            uint32
	MaxData           uint32
	RootIno           uint32
}

func (sb onDiskSuperblock) marshal() []byte {
	buf := make([]byte, onDiskSuperblockSize)
	w := bytes.NewBuffer(buf[:0])
	_ = binary.Write(w, binary.LittleEndian, sb)
	return buf
}

func unmarshalSuperblock(data []byte) (onDiskSuperblock, error) {
	var sb onDiskSuperblock
	if len(data) < onDiskSuperblockSize {
		return sb, fmt.Errorf("superblock buffer too small: got %d, need %d", len(data), onDiskSuperblockSize)
	}
	r := bytes.NewReader(data[:onDiskSuperblockSize])
	if err := binary.Read(r, binary.LittleEndian, &sb); err != nil {
		return sb, err
	}
	return sb, nil
}

// onDiskInode is the exact byte-for-byte layout of one inode table entry.
type onDiskInode struct {
	Ino          uint32
	Size         uint32
	Link         uint32
	Ftype        FileType
	BlockPointer [blocksPerFileInode]int32
	DirCount     uint32
}

func (inode onDiskInode) marshal() []byte {
	buf := make([]byte, onDiskInodeSize)
	w := bytes.NewBuffer(buf[:0])
	_ = binary.Write(w, binary.LittleEndian, inode)
	return buf
}

func unmarshalInode(data []byte) (onDiskInode, error) {
	var inode onDiskInode
	if len(data) < onDiskInodeSize {
		return inode, fmt.Errorf("inode buffer too small: got %d, need %d", len(data), onDiskInodeSize)
	}
	r := bytes.NewReader(data[:onDiskInodeSize])
	if err := binary.Read(r, binary.LittleEndian, &inode); err != nil {
		return inode, err
	}
	return inode, nil
}

// onDiskDentry is the exact byte-for-byte layout of one packed directory
// entry: a zero-padded (not necessarily NUL-terminated) 128-byte name, the
// inode number it names, and that inode's file type.
type onDiskDentry struct {
	Name  [MaxNameLength]byte
	Ino   uint32
	Ftype FileType
}

func newOnDiskDentry(name string, ino uint32, ftype FileType) (onDiskDentry, error) {
	var d onDiskDentry
	if len(name) > MaxNameLength {
		return d, fmt.Errorf("name %q is %d bytes, longer than the %d-byte limit", name, len(name), MaxNameLength)
	}
	copy(d.Name[:], name)
	d.Ino = ino
	d.Ftype = ftype
	return d, nil
}

// name returns the dentry's filename, trimmed of the zero padding used to
// fill the fixed 128-byte field. A name that is exactly 128 bytes long has
// no trailing NUL and is returned unchanged.
func (d onDiskDentry) name() string {
	end := bytes.IndexByte(d.Name[:], 0)
	if end < 0 {
		return string(d.Name[:])
	}
	return string(d.Name[:end])
}

func (d onDiskDentry) marshal() []byte {
	buf := make([]byte, onDiskDentrySize)
	w := bytes.NewBuffer(buf[:0])
	_ = binary.Write(w, binary.LittleEndian, d)
	return buf
}

func unmarshalDentry(data []byte) (onDiskDentry, error) {
	var d onDiskDentry
	if len(data) < onDiskDentrySize {
		return d, fmt.Errorf("dentry buffer too small: got %d, need %d", len(data), onDiskDentrySize)
	}
	r := bytes.NewReader(data[:onDiskDentrySize])
	if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
		return d, err
	}
	return d, nil
}
