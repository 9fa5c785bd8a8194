package device

import (
	"fmt"
	"io"
	"os"
)

// FileDevice is a Driver backed by a real file on the host filesystem. This
// is what the reference CLI mounts: the `device` configuration option from
// the host interface names a path, and FileDevice is the thing that gets
// opened for it.
type FileDevice struct {
	file   *os.File
	ioSize int64
}

// OpenFileDevice opens (or creates, if missing) the file at path as a
// Driver with the given native I/O unit size. If the file is smaller than
// minSize, it is grown (zero-filled) to exactly minSize bytes.
func OpenFileDevice(path string, ioSize, minSize int64) (*FileDevice, error) {
	if ioSize <= 0 {
		return nil, fmt.Errorf("io unit size must be positive, got %d", ioSize)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	if info.Size() < minSize {
		if err := file.Truncate(minSize); err != nil {
			file.Close()
			return nil, err
		}
	} else if info.Size()%ioSize != 0 {
		file.Close()
		return nil, fmt.Errorf(
			"device file %s has size %d, not a multiple of the io unit size %d",
			path, info.Size(), ioSize,
		)
	}

	return &FileDevice{file: file, ioSize: ioSize}, nil
}

func (d *FileDevice) Seek(offset int64, whence int) (int64, error) {
	return d.file.Seek(offset, whence)
}

func (d *FileDevice) Read(buf []byte) (int, error) {
	if int64(len(buf))%d.ioSize != 0 {
		return 0, fmt.Errorf(
			"read of %d bytes is not a multiple of the io unit size %d",
			len(buf), d.ioSize,
		)
	}
	return io.ReadFull(d.file, buf)
}

func (d *FileDevice) Write(buf []byte) (int, error) {
	if int64(len(buf))%d.ioSize != 0 {
		return 0, fmt.Errorf(
			"write of %d bytes is not a multiple of the io unit size %d",
			len(buf), d.ioSize,
		)
	}
	return d.file.Write(buf)
}

func (d *FileDevice) Ioctl(request IoctlRequest) (int64, error) {
	switch request {
	case ReqDeviceSize:
		info, err := d.file.Stat()
		if err != nil {
			return 0, err
		}
		return info.Size(), nil
	case ReqDeviceIOSize:
		return d.ioSize, nil
	default:
		return 0, fmt.Errorf("unsupported ioctl request %d", request)
	}
}

func (d *FileDevice) Close() error {
	return d.file.Close()
}
