package guard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testArena is four quarters of 8 KB: 8, 4, 2 and 1 chunks of the default classes.
const testArena = 4 * 8192

func newTestAllocator(t *testing.T, opts *Options) *Allocator {
	t.Helper()
	a, err := New(testArena, opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, a.Close())
	})
	return a
}

func mustAlloc(t *testing.T, a *Allocator, size int) Ptr {
	t.Helper()
	p, err := a.Alloc(size)
	require.NoError(t, err)
	require.NotZero(t, p)
	return p
}

func chunkAt(t *testing.T, a *Allocator, p Ptr) ChunkInfo {
	t.Helper()
	for _, c := range a.Snapshot().Chunks {
		if c.Addr == p {
			return c
		}
	}
	require.FailNow(t, "no chunk at address", "%#x", uintptr(p))
	return ChunkInfo{}
}
