package fs

import (
	"io"
	"strings"

	fserrors "github.com/msaf1980/blockfs/errors"
)

// DirEntry is one row of a directory listing.
type DirEntry struct {
	Name string
	Type FileType
}

// Stat describes the metadata of a single file or directory.
type Stat struct {
	Ino      uint32
	Type     FileType
	Size     uint32
	Link     uint32
	DirCount uint32
}

func splitParentAndName(path string) (parentPath, name string, err error) {
	components := splitPath(path)
	if len(components) == 0 {
		return "", "", fserrors.ErrInvalid.WithMessage("root has no parent")
	}
	name = components[len(components)-1]
	if len(components) == 1 {
		return "/", name, nil
	}
	return "/" + strings.Join(components[:len(components)-1], "/"), name, nil
}

// resolveDir requires an exact match on every path component. It backs
// operations that mutate the tree (create's parent resolution): a
// mutation must land on the directory actually named, never on an
// unrelated entry whose name happens to start with the same prefix.
func (fsys *Filesystem) resolveDir(path string) (*dentryNode, *inode, error) {
	res, err := fsys.lookupExact(path)
	if err != nil {
		return nil, nil, err
	}
	if !res.found {
		return nil, nil, fserrors.ErrNotFound.WithMessage(path)
	}
	in, err := fsys.hydrate(res.node)
	if err != nil {
		return nil, nil, err
	}
	if in.ftype != FileTypeDir {
		return nil, nil, fserrors.ErrNotDir.WithMessage(path)
	}
	return res.node, in, nil
}

// resolveNode resolves path to an existing file or directory through
// lookup. This is what every read-only inspection operation (Stat, Read,
// Readdir) uses.
func (fsys *Filesystem) resolveNode(path string) (*dentryNode, *inode, error) {
	res, err := fsys.lookup(path)
	if err != nil {
		return nil, nil, err
	}
	if !res.found {
		return nil, nil, fserrors.ErrNotFound.WithMessage(path)
	}
	in, err := fsys.hydrate(res.node)
	if err != nil {
		return nil, nil, err
	}
	return res.node, in, nil
}

func (fsys *Filesystem) create(path string, ftype FileType) error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if fsys.options.ReadOnly {
		return fserrors.ErrAccess.WithMessage("filesystem is mounted read-only")
	}

	parentPath, name, err := splitParentAndName(path)
	if err != nil {
		return err
	}
	if name == "" || len(name) > MaxNameLength {
		return fserrors.ErrInvalid.WithMessage("invalid file name")
	}

	_, parentInode, err := fsys.resolveDir(parentPath)
	if err != nil {
		return err
	}

	existing, err := fsys.lookupExact(path)
	if err != nil {
		return err
	}
	if existing.found {
		return fserrors.ErrExists.WithMessage(path)
	}

	child := &dentryNode{name: name}
	if _, err := fsys.allocInode(ftype, child); err != nil {
		return err
	}
	return fsys.attachChild(parentInode, child, true)
}

// Mkdir creates an empty directory at path. The parent directory must
// already exist.
func (fsys *Filesystem) Mkdir(path string) error {
	return fsys.create(path, FileTypeDir)
}

// Mknod creates an empty regular file at path. The parent directory must
// already exist.
func (fsys *Filesystem) Mknod(path string) error {
	return fsys.create(path, FileTypeReg)
}

// Readdir lists the entries of the directory at path, head-first: the most
// recently created (or, after a remount, the most recently hydrated) entry
// comes first, mirroring the original's head-insertion into the directory's
// dentry list.
func (fsys *Filesystem) Readdir(path string) ([]DirEntry, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	_, in, err := fsys.resolveNode(path)
	if err != nil {
		return nil, err
	}
	if in.ftype != FileTypeDir {
		return nil, fserrors.ErrNotDir.WithMessage(path)
	}

	entries := make([]DirEntry, len(in.children))
	for i, child := range in.children {
		entries[i] = DirEntry{Name: child.name, Type: child.ftype}
	}
	return entries, nil
}

// Stat reports metadata for the file or directory at path.
func (fsys *Filesystem) Stat(path string) (Stat, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	_, in, err := fsys.resolveNode(path)
	if err != nil {
		return Stat{}, err
	}
	return Stat{Ino: in.ino, Type: in.ftype, Size: in.size, Link: in.link, DirCount: in.dirCount}, nil
}

// Read copies up to len(buf) bytes starting at offset from the regular
// file at path, returning io.EOF once offset has reached the file's size.
func (fsys *Filesystem) Read(path string, offset int64, buf []byte) (int, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	_, in, err := fsys.resolveNode(path)
	if err != nil {
		return 0, err
	}
	if in.ftype != FileTypeReg {
		return 0, fserrors.ErrIsDir.WithMessage(path)
	}
	if offset < 0 {
		return 0, fserrors.ErrInvalid.WithMessage("negative offset")
	}

	remaining := int64(in.size) - offset
	if remaining <= 0 {
		return 0, io.EOF
	}
	toRead := int64(len(buf))
	if toRead > remaining {
		toRead = remaining
	}

	blockSize := int64(fsys.blockSize)
	var read int64
	for read < toRead {
		pos := offset + read
		blkIdx := int(pos / blockSize)
		blkOff := pos % blockSize
		if blkIdx >= blocksPerFileInode || in.blockPointer[blkIdx] < 0 {
			break
		}
		if in.dataBlocks[blkIdx] == nil {
			data := make([]byte, fsys.blockSize)
			if err := fsys.io.readAt(fsys.layout.dataBlockOffset(fsys.blockSize, in.blockPointer[blkIdx]), data); err != nil {
				return int(read), fserrors.ErrIO.Wrap(err)
			}
			in.dataBlocks[blkIdx] = data
		}
		n := copy(buf[read:toRead], in.dataBlocks[blkIdx][blkOff:])
		read += int64(n)
	}
	return int(read), nil
}

// Write copies data into the regular file at path starting at offset,
// allocating new data blocks as needed, and growing the file's size if the
// write extends past its current end. A file is permanently bounded to six
// blocks: a write starting beyond the sixth block fails with ErrNoSpace,
// and a write that runs past the end of the sixth block stops there and
// returns the number of bytes written, with no error.
func (fsys *Filesystem) Write(path string, offset int64, data []byte) (int, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if fsys.options.ReadOnly {
		return 0, fserrors.ErrAccess.WithMessage("filesystem is mounted read-only")
	}

	res, err := fsys.lookupExact(path)
	if err != nil {
		return 0, err
	}
	if !res.found {
		return 0, fserrors.ErrNotFound.WithMessage(path)
	}
	in, err := fsys.hydrate(res.node)
	if err != nil {
		return 0, err
	}
	if in.ftype != FileTypeReg {
		return 0, fserrors.ErrIsDir.WithMessage(path)
	}
	if offset < 0 {
		return 0, fserrors.ErrInvalid.WithMessage("negative offset")
	}

	blockSize := int64(fsys.blockSize)
	var written int64
	for written < int64(len(data)) {
		pos := offset + written
		blkIdx := int(pos / blockSize)
		blkOff := pos % blockSize
		if blkIdx >= blocksPerFileInode {
			if written == 0 {
				return 0, fserrors.ErrNoSpace.WithMessage("file has reached its maximum size")
			}
			break
		}
		if ferr := fsys.allocDataBlock(in, blkIdx); ferr != nil {
			if written == 0 {
				return 0, ferr
			}
			break
		}
		n := copy(in.dataBlocks[blkIdx][blkOff:], data[written:])
		written += int64(n)
	}

	if newSize := uint32(offset + written); newSize > in.size {
		in.size = newSize
	}
	return int(written), nil
}

// Unlink removes the file or empty directory at path. A non-empty
// directory fails with ErrNotEmpty; the root directory cannot be removed.
func (fsys *Filesystem) Unlink(path string) error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if fsys.options.ReadOnly {
		return fserrors.ErrAccess.WithMessage("filesystem is mounted read-only")
	}

	res, err := fsys.lookupExact(path)
	if err != nil {
		return err
	}
	if !res.found {
		return fserrors.ErrNotFound.WithMessage(path)
	}
	if res.node == fsys.root {
		return fserrors.ErrInvalid.WithMessage("cannot remove the root directory")
	}

	target, err := fsys.hydrate(res.node)
	if err != nil {
		return err
	}
	if target.ftype == FileTypeDir && len(target.children) > 0 {
		return fserrors.ErrNotEmpty.WithMessage(path)
	}

	if target.ftype == FileTypeReg {
		for _, blk := range target.blockPointer {
			if blk >= 0 {
				fsys.dataBitmap.free(uint32(blk))
			}
		}
	}
	fsys.inodeBitmap.free(target.ino)

	parentInode, err := fsys.hydrate(res.node.parent)
	if err != nil {
		return err
	}
	fsys.detachChild(parentInode, res.node)
	return nil
}
