package mmap

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAnon(t *testing.T) {
	if runtime.GOOS != "windows" && runtime.GOOS != "linux" && runtime.GOOS != "darwin" &&
		runtime.GOOS != "freebsd" && runtime.GOOS != "openbsd" && runtime.GOOS != "netbsd" {
		t.Skip("anonymous mappings not supported on " + runtime.GOOS)
	}

	m, err := MapAnon(4096)
	require.NoError(t, err)

	data := m.Bytes()
	require.Len(t, data, 4096)
	assert.Equal(t, 4096, m.Size())

	// Fresh anonymous memory is zeroed and writable.
	for _, b := range data {
		require.Zero(t, b)
	}
	data[0], data[4095] = 0xAB, 0xCD
	assert.Equal(t, byte(0xAB), m.Bytes()[0])
	assert.Equal(t, byte(0xCD), m.Bytes()[4095])

	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())

	// Close is idempotent.
	assert.NoError(t, m.Close())
}

func TestMapAnon_InvalidSize(t *testing.T) {
	_, err := MapAnon(0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = MapAnon(-1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}
