package shm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestCreate(t *testing.T) {
	f, err := Create(4096)
	require.NoError(t, err)
	defer f.Release()

	assert.Equal(t, 4096, f.Size())
	assert.GreaterOrEqual(t, f.Fd(), 0)

	copy(f.Bytes(), "shared")

	var st unix.Stat_t
	require.NoError(t, unix.Fstat(f.Fd(), &st))
	assert.Equal(t, int64(4096), st.Size)

	buf := make([]byte, 6)
	_, err = unix.Pread(f.Fd(), buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "shared", string(buf))
}

func TestCreateInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := Create(size)
		assert.Error(t, err, "size %d", size)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	f, err := Create(64)
	require.NoError(t, err)

	assert.False(t, f.Released())
	require.NoError(t, f.Release())
	assert.True(t, f.Released())
	assert.Nil(t, f.Bytes())
	assert.NoError(t, f.Release())
}
