// Package device defines the block driver interface consumed by the
// filesystem core. The core never talks to a real disk, file, or network
// block device directly — it only calls Seek/Read/Write/Ioctl/Close on a
// Driver. Opening a device is left to each implementation's constructor
// (NewMemoryDevice, OpenFileDevice).
package device

import "io"

// IoctlRequest selects which property Ioctl reports.
type IoctlRequest int

const (
	// ReqDeviceSize asks for the total size of the device, in bytes.
	ReqDeviceSize IoctlRequest = iota
	// ReqDeviceIOSize asks for the device's native I/O unit size, in bytes.
	// The filesystem's block size is always twice this value.
	ReqDeviceIOSize
)

// Whence mirrors io.Seeker's whence constants so callers don't need to
// import "io" just to seek a Driver.
const (
	SeekStart   = io.SeekStart
	SeekCurrent = io.SeekCurrent
	SeekEnd     = io.SeekEnd
)

// Driver is the abstraction the filesystem core requires from an already
// opened block device: close, seek, read, write, plus an ioctl escape hatch
// for the two pieces of geometry the core needs at mount time. All I/O is
// synchronous and must be performed in exact multiples of the native I/O
// unit reported by ReqDeviceIOSize.
type Driver interface {
	// Seek repositions the device's read/write cursor, POSIX lseek style.
	Seek(offset int64, whence int) (int64, error)
	// Read fills buf completely from the device at the current cursor
	// position, advancing the cursor by len(buf). len(buf) must be a
	// multiple of the native I/O unit size.
	Read(buf []byte) (int, error)
	// Write writes all of buf to the device at the current cursor position,
	// advancing the cursor by len(buf). len(buf) must be a multiple of the
	// native I/O unit size.
	Write(buf []byte) (int, error)
	// Ioctl answers one of the IoctlRequest selectors.
	Ioctl(request IoctlRequest) (int64, error)
	// Close releases the underlying resource. After Close, the driver must
	// not be used again.
	Close() error
}
