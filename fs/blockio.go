package fs

import (
	"io"

	"github.com/msaf1980/blockfs/device"
)

// blockIO translates arbitrary (offset, length) byte ranges into reads and
// writes aligned to the driver's native I/O unit, performing read-modify-
// write for the partial blocks at either end of a write. This is the exact
// alignment strategy the original layout manager uses: round the start down
// to the nearest io-unit boundary, round the end up, and splice the
// requested range into (or out of) that aligned window.
type blockIO struct {
	driver device.Driver
	ioSize int64
}

func newBlockIO(driver device.Driver, ioSize int64) *blockIO {
	return &blockIO{driver: driver, ioSize: ioSize}
}

func (b *blockIO) alignedWindow(offset int64, size int) (alignedOffset int64, bias int64, alignedSize int64) {
	bias = offset % b.ioSize
	alignedOffset = offset - bias
	total := bias + int64(size)
	alignedSize = total
	if rem := alignedSize % b.ioSize; rem != 0 {
		alignedSize += b.ioSize - rem
	}
	return alignedOffset, bias, alignedSize
}

// readAt reads len(dst) bytes starting at byte offset, going through an
// aligned scratch buffer when the requested range doesn't already sit on
// io-unit boundaries.
func (b *blockIO) readAt(offset int64, dst []byte) error {
	alignedOffset, bias, alignedSize := b.alignedWindow(offset, len(dst))

	if bias == 0 && int64(len(dst)) == alignedSize {
		if _, err := b.driver.Seek(offset, device.SeekStart); err != nil {
			return err
		}
		_, err := b.driver.Read(dst)
		return err
	}

	scratch := make([]byte, alignedSize)
	if _, err := b.driver.Seek(alignedOffset, device.SeekStart); err != nil {
		return err
	}
	if _, err := b.driver.Read(scratch); err != nil {
		return err
	}
	copy(dst, scratch[bias:bias+int64(len(dst))])
	return nil
}

// writeAt writes src at byte offset. When the range isn't io-unit aligned,
// the surrounding aligned window is first read back so the unaffected
// bytes at either edge of the window are preserved, then the whole window
// is written back.
func (b *blockIO) writeAt(offset int64, src []byte) error {
	alignedOffset, bias, alignedSize := b.alignedWindow(offset, len(src))

	if bias == 0 && int64(len(src)) == alignedSize {
		if _, err := b.driver.Seek(offset, device.SeekStart); err != nil {
			return err
		}
		_, err := b.driver.Write(src)
		return err
	}

	scratch := make([]byte, alignedSize)
	if _, err := b.driver.Seek(alignedOffset, device.SeekStart); err != nil {
		return err
	}
	if _, err := b.driver.Read(scratch); err != nil && err != io.EOF {
		return err
	}
	copy(scratch[bias:bias+int64(len(src))], src)

	if _, err := b.driver.Seek(alignedOffset, device.SeekStart); err != nil {
		return err
	}
	_, err := b.driver.Write(scratch)
	return err
}
