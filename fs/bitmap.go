package fs

import (
	"github.com/boljen/go-bitmap"
	fserrors "github.com/msaf1980/blockfs/errors"
)

// allocator is a linear first-fit bitmap allocator shared by the inode
// bitmap and the data-block bitmap. Allocation and freeing are purely
// in-memory; durability is deferred to Filesystem.Unmount, which persists
// the backing bitmap bytes.
type allocator struct {
	bits  bitmap.Bitmap
	limit uint32
}

// newAllocator wraps an existing bitmap byte slice (read from disk, or
// freshly zeroed at format time) with a scan limit.
func newAllocator(data []byte, limit uint32) *allocator {
	return &allocator{bits: bitmap.Bitmap(data), limit: limit}
}

// allocate performs a linear scan for the first clear bit, sets it, and
// returns its ordinal. It fails with ErrNoSpace if no clear bit exists
// before the configured limit.
func (a *allocator) allocate() (uint32, fserrors.Error) {
	for i := uint32(0); i < a.limit; i++ {
		if !a.bits.Get(int(i)) {
			a.bits.Set(int(i), true)
			return i, nil
		}
	}
	return 0, fserrors.ErrNoSpace.WithMessage("bitmap exhausted")
}

// free clears the bit at index. No double-free detection is performed; the
// allocator is an internal implementation detail and callers are expected
// to only free indices they previously allocated.
func (a *allocator) free(index uint32) {
	a.bits.Set(int(index), false)
}

// isSet reports whether the bit at index is currently allocated.
func (a *allocator) isSet(index uint32) bool {
	return a.bits.Get(int(index))
}

// countSet returns the number of set bits up to the allocator's limit, used
// for FSStat reporting.
func (a *allocator) countSet() uint32 {
	var n uint32
	for i := uint32(0); i < a.limit; i++ {
		if a.bits.Get(int(i)) {
			n++
		}
	}
	return n
}

// data returns the raw bytes backing the bitmap, for persisting to disk.
func (a *allocator) data() []byte {
	return a.bits
}
