package mmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReserveZeroFilled(t *testing.T) {
	data, release, err := Reserve(64 * 1024)
	require.NoError(t, err)
	require.Len(t, data, 64*1024)
	defer func() {
		require.NoError(t, release())
	}()

	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d not zero: 0x%x", i, b)
		}
	}

	// Writable end to end.
	data[0] = 0xAA
	data[len(data)-1] = 0xBB
	require.Equal(t, byte(0xAA), data[0])
	require.Equal(t, byte(0xBB), data[len(data)-1])
}

func TestReserveReleaseTwice(t *testing.T) {
	_, release, err := Reserve(4096)
	require.NoError(t, err)
	require.NoError(t, release())
	require.NoError(t, release(), "second release must be a no-op")
}

func TestReserveInvalidSize(t *testing.T) {
	_, _, err := Reserve(0)
	require.ErrorIs(t, err, ErrInvalidSize)

	_, _, err = ReserveHeap(-5)
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestReserveHeap(t *testing.T) {
	data, release, err := ReserveHeap(128)
	require.NoError(t, err)
	require.Len(t, data, 128)
	require.NoError(t, release())
}
