package gc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestHeap creates a heap with the given usable arena size and closes it with the test.
func newTestHeap(t *testing.T, arenaSize int) *Heap {
	t.Helper()
	h, err := New(&Options{ArenaSize: arenaSize})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, h.Close())
	})
	return h
}

func mustAlloc(t *testing.T, h *Heap, size int) Ptr {
	t.Helper()
	p, err := h.Alloc(size)
	require.NoError(t, err)
	require.NotZero(t, p)
	return p
}

// requireSingleFree asserts that the free registry holds exactly one region of size.
func requireSingleFree(t *testing.T, h *Heap, size int) {
	t.Helper()
	free := h.FreeRegions()
	require.Len(t, free, 1, "free regions: %+v", free)
	require.Equal(t, size, free[0].Size)
}
