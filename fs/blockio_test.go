package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msaf1980/blockfs/device"
)

func TestBlockIOWriteReadUnaligned(t *testing.T) {
	dev, err := device.NewMemoryDevice(256, 16)
	require.NoError(t, err)
	bio := newBlockIO(dev, 16)

	payload := []byte("hello, filesystem")
	require.NoError(t, bio.writeAt(5, payload))

	got := make([]byte, len(payload))
	require.NoError(t, bio.readAt(5, got))
	assert.Equal(t, payload, got)
}

func TestBlockIOWritePreservesSurroundingBytes(t *testing.T) {
	dev, err := device.NewMemoryDevice(64, 16)
	require.NoError(t, err)
	bio := newBlockIO(dev, 16)

	require.NoError(t, bio.writeAt(0, []byte("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")))
	require.NoError(t, bio.writeAt(10, []byte("BBB")))

	got := make([]byte, 32)
	require.NoError(t, bio.readAt(0, got))
	assert.Equal(t, "AAAAAAAAAABBBAAAAAAAAAAAAAAAAAAA", string(got))
}

func TestBlockIOAlignedWindow(t *testing.T) {
	bio := &blockIO{ioSize: 16}

	offset, bias, size := bio.alignedWindow(20, 5)
	assert.Equal(t, int64(16), offset)
	assert.Equal(t, int64(4), bias)
	assert.Equal(t, int64(16), size)

	offset, bias, size = bio.alignedWindow(0, 16)
	assert.Equal(t, int64(0), offset)
	assert.Equal(t, int64(0), bias)
	assert.Equal(t, int64(16), size)
}
