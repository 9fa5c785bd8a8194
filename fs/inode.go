package fs

import (
	"github.com/hashicorp/go-multierror"

	fserrors "github.com/msaf1980/blockfs/errors"
)

// dentryNode is the in-memory, lazily-hydrated directory entry. It always
// exists for every path component that has ever been visited; its node
// field is nil until the inode it names has actually been read from disk.
type dentryNode struct {
	name   string
	ino    uint32
	ftype  FileType
	parent *dentryNode
	node   *inode
}

// inode is the in-memory object cache entry for one on-disk inode. For a
// directory, children holds every hydrated-or-newly-created dentry, most
// recently attached first. For a regular file, dataBlocks holds the lazily
// allocated block buffers, indexed the same way as blockPointer.
type inode struct {
	ino          uint32
	size         uint32
	link         uint32
	ftype        FileType
	blockPointer [blocksPerFileInode]int32
	dirCount     uint32
	dentry       *dentryNode
	children     []*dentryNode
	dataBlocks   [blocksPerFileInode][]byte
}

func newInode(ino uint32, ftype FileType, dentry *dentryNode) *inode {
	in := &inode{ino: ino, link: 1, ftype: ftype, dentry: dentry}
	for i := range in.blockPointer {
		in.blockPointer[i] = -1
	}
	return in
}

// allocInode claims a free inode number and builds the in-memory inode for
// it, cross-linking it with dentry the way a freshly created file or
// directory is.
func (fsys *Filesystem) allocInode(ftype FileType, dentry *dentryNode) (*inode, error) {
	idx, ferr := fsys.inodeBitmap.allocate()
	if ferr != nil {
		return nil, ferr
	}
	in := newInode(idx, ftype, dentry)
	dentry.ino = idx
	dentry.ftype = ftype
	dentry.node = in
	return in, nil
}

// attachChild adds child to parent's directory listing. allocateBlock
// must be true when child is being newly created, so that a fresh data
// block is claimed when the child count crosses into a block whose pointer
// is still unset; a block kept from before an earlier removal is reused.
// It must be false during hydration: the block pointers for existing
// children are already correct from the on-disk inode, and re-running the
// allocation there is the exact defect the original implementation has,
// corrupting the data bitmap and overwriting a still-in-use block pointer
// on every remount. We deliberately do not reproduce that here.
//
// child is head-inserted, not appended: the original always prepends onto
// the directory's dentry list, both when a new entry is created and when
// an existing one is read back off disk during hydration. One consequence
// carries through to syncInode, which writes the list out in its current
// order: the on-disk order after a write-back is the reverse of the order
// entries were attached in during that mount (LIFO of historical
// attachChild calls), not creation order.
func (fsys *Filesystem) attachChild(parent *inode, child *dentryNode, allocateBlock bool) error {
	parent.children = append([]*dentryNode{child}, parent.children...)
	child.parent = parent.dentry
	parent.dirCount++

	if !allocateBlock {
		return nil
	}

	perBlock := dentriesPerBlock(fsys.blockSize)
	if parent.dirCount%perBlock != 1 {
		return nil
	}
	curBlk := parent.dirCount / perBlock
	if curBlk >= blocksPerFileInode {
		return fserrors.ErrNoSpace.WithMessage("directory has reached its maximum block count")
	}
	if parent.blockPointer[curBlk] >= 0 {
		return nil
	}
	idx, ferr := fsys.dataBitmap.allocate()
	if ferr != nil {
		return ferr
	}
	parent.blockPointer[curBlk] = int32(idx)
	return nil
}

// detachChild removes child from parent's directory listing, mirroring the
// original drop_dentry: the sibling order of the remaining children is
// preserved but the freed data block accounting is left untouched, matching
// the original's behavior of never shrinking a directory's block pointers
// back down after a removal.
func (fsys *Filesystem) detachChild(parent *inode, child *dentryNode) {
	for i, c := range parent.children {
		if c == child {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			parent.dirCount--
			return
		}
	}
}

// allocDataBlock claims data block blkNo of in, allocating a fresh bitmap
// entry only if one isn't already assigned, and lazily allocating the
// in-memory buffer backing it.
func (fsys *Filesystem) allocDataBlock(in *inode, blkNo int) error {
	if blkNo < 0 || blkNo >= blocksPerFileInode {
		return fserrors.ErrNoSpace.WithMessage("file has reached its maximum block count")
	}
	if in.blockPointer[blkNo] == -1 {
		idx, ferr := fsys.dataBitmap.allocate()
		if ferr != nil {
			return ferr
		}
		in.blockPointer[blkNo] = int32(idx)
	}
	if in.dataBlocks[blkNo] == nil {
		in.dataBlocks[blkNo] = make([]byte, fsys.blockSize)
	}
	return nil
}

// readInode hydrates dentry's inode from disk, recursively populating one
// level of child dentries for a directory (their own inodes stay
// unhydrated until visited) or the allocated data buffers for a file.
func (fsys *Filesystem) readInode(dentry *dentryNode) (*inode, error) {
	buf := make([]byte, onDiskInodeSize)
	if err := fsys.io.readAt(fsys.layout.inodeOffset(fsys.blockSize, dentry.ino), buf); err != nil {
		return nil, fserrors.ErrIO.Wrap(err)
	}
	od, err := unmarshalInode(buf)
	if err != nil {
		return nil, fserrors.ErrIO.Wrap(err)
	}

	in := &inode{
		ino:      od.Ino,
		size:     od.Size,
		link:     od.Link,
		ftype:    od.Ftype,
		dirCount: 0,
		dentry:   dentry,
	}
	copy(in.blockPointer[:], od.BlockPointer[:])
	dentry.node = in
	dentry.ftype = od.Ftype

	if od.Ftype == FileTypeDir {
		remaining := od.DirCount
		perBlock := dentriesPerBlock(fsys.blockSize)
		blockBuf := make([]byte, fsys.blockSize)
		for _, blk := range in.blockPointer {
			if remaining == 0 {
				break
			}
			if blk < 0 {
				continue
			}
			if err := fsys.io.readAt(fsys.layout.dataBlockOffset(fsys.blockSize, blk), blockBuf); err != nil {
				return nil, fserrors.ErrIO.Wrap(err)
			}
			for i := uint32(0); i < perBlock && remaining > 0; i++ {
				rec, err := unmarshalDentry(blockBuf[i*onDiskDentrySize : (i+1)*onDiskDentrySize])
				if err != nil {
					return nil, fserrors.ErrIO.Wrap(err)
				}
				child := &dentryNode{name: rec.name(), ino: rec.Ino, ftype: rec.Ftype}
				if err := fsys.attachChild(in, child, false); err != nil {
					return nil, err
				}
				remaining--
			}
		}
	} else {
		for i, blk := range in.blockPointer {
			if blk < 0 {
				continue
			}
			data := make([]byte, fsys.blockSize)
			if err := fsys.io.readAt(fsys.layout.dataBlockOffset(fsys.blockSize, blk), data); err != nil {
				return nil, fserrors.ErrIO.Wrap(err)
			}
			in.dataBlocks[i] = data
		}
	}

	return in, nil
}

// hydrate returns dentry's inode, reading it from disk on first access.
func (fsys *Filesystem) hydrate(dentry *dentryNode) (*inode, error) {
	if dentry.node != nil {
		return dentry.node, nil
	}
	return fsys.readInode(dentry)
}

// syncInode performs the destructive, recursive write-back used at unmount:
// every visited inode and directory block is written to disk, and the
// in-memory cache entries are dropped as they're flushed so the whole tree
// is gone by the time the top-level call returns. Children whose inodes
// were never hydrated are skipped, since their on-disk state is already
// current.
func (fsys *Filesystem) syncInode(in *inode) error {
	var result *multierror.Error

	od := onDiskInode{
		Ino:      in.ino,
		Size:     in.size,
		Link:     1,
		Ftype:    in.ftype,
		DirCount: in.dirCount,
	}
	copy(od.BlockPointer[:], in.blockPointer[:])
	if err := fsys.io.writeAt(fsys.layout.inodeOffset(fsys.blockSize, in.ino), od.marshal()); err != nil {
		result = multierror.Append(result, fserrors.ErrIO.Wrap(err))
	}

	if in.ftype == FileTypeDir {
		perBlock := dentriesPerBlock(fsys.blockSize)
		var blockBuf []byte
		curBlk := -1

		flush := func() {
			if curBlk < 0 {
				return
			}
			blk := in.blockPointer[curBlk]
			if blk < 0 {
				return
			}
			if err := fsys.io.writeAt(fsys.layout.dataBlockOffset(fsys.blockSize, blk), blockBuf); err != nil {
				result = multierror.Append(result, fserrors.ErrIO.Wrap(err))
			}
		}

		for i, child := range in.children {
			slot := i / int(perBlock)
			if slot != curBlk {
				flush()
				curBlk = slot
				blockBuf = make([]byte, fsys.blockSize)
			}
			rec, err := newOnDiskDentry(child.name, child.ino, child.ftype)
			if err != nil {
				result = multierror.Append(result, fserrors.ErrInvalid.Wrap(err))
				continue
			}
			copy(blockBuf[(i%int(perBlock))*onDiskDentrySize:], rec.marshal())

			if child.node != nil {
				if err := fsys.syncInode(child.node); err != nil {
					result = multierror.Append(result, err)
				}
			}
		}
		flush()
		in.children = nil
	} else {
		for i, blk := range in.blockPointer {
			if blk < 0 || in.dataBlocks[i] == nil {
				continue
			}
			if err := fsys.io.writeAt(fsys.layout.dataBlockOffset(fsys.blockSize, blk), in.dataBlocks[i]); err != nil {
				result = multierror.Append(result, fserrors.ErrIO.Wrap(err))
			}
			in.dataBlocks[i] = nil
		}
	}

	in.dentry.node = nil
	return result.ErrorOrNil()
}
