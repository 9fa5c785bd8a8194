package fs

import (
	"sync"

	"github.com/msaf1980/blockfs/device"
)

// Filesystem is the top-level handle returned by Mount. All operations are
// safe for concurrent use; a single mutex serializes access to the object
// cache and the two bitmap allocators. The original is single-threaded and
// takes no lock; the mutex is this implementation's coarse lock around
// every public operation.
type Filesystem struct {
	mu sync.Mutex

	driver device.Driver
	io     *blockIO

	layout    regionLayout
	blockSize uint32

	inodeBitmap *allocator
	dataBitmap  *allocator

	root    *dentryNode
	options MountOptions
}

// FSStat reports aggregate capacity and usage, derived from the live bitmap
// occupancy rather than a cached counter.
type FSStat struct {
	BlockSize      uint32
	TotalInodes    uint32
	UsedInodes     uint32
	TotalDataBlock uint32
	UsedDataBlock  uint32
}

func (fsys *Filesystem) FSStat() FSStat {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	return FSStat{
		BlockSize:      fsys.blockSize,
		TotalInodes:    fsys.layout.MaxIno,
		UsedInodes:     fsys.inodeBitmap.countSet(),
		TotalDataBlock: fsys.layout.MaxData,
		UsedDataBlock:  fsys.dataBitmap.countSet(),
	}
}
