package device

import (
	"fmt"
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// MemoryDevice is a reference Driver implementation backed by a fixed-size
// in-memory byte slice. It exists purely to exercise the filesystem core in
// tests and in the CLI against a disposable image; it is not part of the
// core's layout manager.
//
// Reads and writes are required to be a whole number of native I/O units
// long, just like a real block device would enforce; MemoryDevice checks
// the length and returns an error rather than silently tolerating a partial
// unit, since the whole point of the block I/O adapter in the fs package is
// to never perform one. The cursor position set by Seek is not checked.
type MemoryDevice struct {
	stream io.ReadWriteSeeker
	size   int64
	ioSize int64
}

// NewMemoryDevice creates a MemoryDevice of exactly totalSize bytes, which
// must be a multiple of ioSize.
func NewMemoryDevice(totalSize, ioSize int64) (*MemoryDevice, error) {
	if ioSize <= 0 {
		return nil, fmt.Errorf("io unit size must be positive, got %d", ioSize)
	}
	if totalSize <= 0 || totalSize%ioSize != 0 {
		return nil, fmt.Errorf(
			"device size %d must be a positive multiple of the io unit size %d",
			totalSize, ioSize,
		)
	}

	data := make([]byte, totalSize)
	return &MemoryDevice{
		stream: bytesextra.NewReadWriteSeeker(data),
		size:   totalSize,
		ioSize: ioSize,
	}, nil
}

// NewMemoryDeviceFromImage wraps an existing byte slice (e.g. loaded from a
// file or a saved test fixture) as a MemoryDevice instead of allocating a
// fresh zeroed one.
func NewMemoryDeviceFromImage(image []byte, ioSize int64) (*MemoryDevice, error) {
	if ioSize <= 0 {
		return nil, fmt.Errorf("io unit size must be positive, got %d", ioSize)
	}
	if len(image) == 0 || int64(len(image))%ioSize != 0 {
		return nil, fmt.Errorf(
			"image size %d must be a positive multiple of the io unit size %d",
			len(image), ioSize,
		)
	}

	return &MemoryDevice{
		stream: bytesextra.NewReadWriteSeeker(image),
		size:   int64(len(image)),
		ioSize: ioSize,
	}, nil
}

func (d *MemoryDevice) Seek(offset int64, whence int) (int64, error) {
	return d.stream.Seek(offset, whence)
}

func (d *MemoryDevice) Read(buf []byte) (int, error) {
	if int64(len(buf))%d.ioSize != 0 {
		return 0, fmt.Errorf(
			"read of %d bytes is not a multiple of the io unit size %d",
			len(buf), d.ioSize,
		)
	}
	return io.ReadFull(d.stream, buf)
}

func (d *MemoryDevice) Write(buf []byte) (int, error) {
	if int64(len(buf))%d.ioSize != 0 {
		return 0, fmt.Errorf(
			"write of %d bytes is not a multiple of the io unit size %d",
			len(buf), d.ioSize,
		)
	}
	return d.stream.Write(buf)
}

func (d *MemoryDevice) Ioctl(request IoctlRequest) (int64, error) {
	switch request {
	case ReqDeviceSize:
		return d.size, nil
	case ReqDeviceIOSize:
		return d.ioSize, nil
	default:
		return 0, fmt.Errorf("unsupported ioctl request %d", request)
	}
}

// Close is a no-op; the backing slice is garbage collected normally.
func (d *MemoryDevice) Close() error {
	return nil
}
