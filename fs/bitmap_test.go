package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorLinearFirstFit(t *testing.T) {
	a := newAllocator(make([]byte, 4), 10)

	first, err := a.allocate()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), first)

	second, err := a.allocate()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), second)

	a.free(first)

	third, err := a.allocate()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), third, "freeing the lowest index should make it the next first-fit candidate")
}

func TestAllocatorExhaustion(t *testing.T) {
	a := newAllocator(make([]byte, 1), 4)
	for i := 0; i < 4; i++ {
		_, err := a.allocate()
		require.NoError(t, err)
	}
	_, err := a.allocate()
	assert.Error(t, err)
}

func TestAllocatorCountSet(t *testing.T) {
	a := newAllocator(make([]byte, 1), 8)
	assert.Equal(t, uint32(0), a.countSet())
	_, _ = a.allocate()
	_, _ = a.allocate()
	assert.Equal(t, uint32(2), a.countSet())
}
