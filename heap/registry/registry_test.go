package registry

import (
	"cmp"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

const tomb = -1

func fill(t *testing.T, n int) *Registry[int] {
	t.Helper()
	r := New(tomb)
	for i := range n {
		r.Push(i * 10)
	}
	require.Equal(t, n, r.Len())
	return r
}

func Test_NewIsEmptyAndUnpinned(t *testing.T) {
	r := New(tomb)
	require.Zero(t, r.Len())
	require.False(t, r.Pinned())
	require.Equal(t, initialCapacity, r.Cap())
	require.Equal(t, NotFound, r.IndexOf(0))
	require.Equal(t, tomb, r.Tombstone())
}

func Test_PushGrowsCapacity(t *testing.T) {
	r := fill(t, initialCapacity)
	require.Equal(t, initialCapacity, r.Cap())

	r.Push(999)
	require.Equal(t, initialCapacity+1, r.Len())
	require.Equal(t, 2*initialCapacity, r.Cap())
	for i := range initialCapacity {
		require.Equal(t, i*10, r.At(i), "existing elements must survive growth")
	}
	require.Equal(t, 999, r.At(initialCapacity))
}

func Test_ZeroValueRegistryGrows(t *testing.T) {
	var r Registry[int]
	r.tombstone = tomb
	r.Push(7)
	require.Equal(t, 1, r.Len())
	require.Equal(t, 7, r.At(0))
}

func Test_RemoveAtUnpinnedSwapsLast(t *testing.T) {
	r := fill(t, 5) // 0 10 20 30 40

	got := r.RemoveAt(1)
	require.Equal(t, 10, got)
	require.Equal(t, 4, r.Len())
	require.Equal(t, []int{0, 40, 20, 30}, r.Values())

	got = r.RemoveAt(3) // last element, no swap partner
	require.Equal(t, 30, got)
	require.Equal(t, []int{0, 40, 20}, r.Values())
}

func Test_RemoveAtPinnedWritesTombstone(t *testing.T) {
	r := fill(t, 5)
	r.Pin()

	got := r.RemoveAt(1)
	require.Equal(t, 10, got)
	require.Equal(t, 5, r.Len(), "pinned removal keeps length")
	require.Equal(t, tomb, r.At(1))
	require.Equal(t, 20, r.At(2), "other indices stay stable")

	r.Unpin()
	require.Equal(t, 4, r.Len())
	require.ElementsMatch(t, []int{0, 20, 30, 40}, r.Values())
	require.Equal(t, NotFound, r.IndexOf(tomb), "no tombstones survive unpin")
}

func Test_UnpinCompactsArbitraryPatterns(t *testing.T) {
	// Every removal mask over 8 elements.
	const n = 8
	for mask := range 1 << n {
		r := fill(t, n)
		var want []int
		r.Pin()
		for i := range n {
			if mask&(1<<i) != 0 {
				r.RemoveAt(i)
			} else {
				want = append(want, i*10)
			}
		}
		r.Unpin()

		require.Equal(t, len(want), r.Len(), "mask %08b", mask)
		require.ElementsMatch(t, want, r.Values(), "mask %08b", mask)
		for i := range r.Len() {
			require.NotEqual(t, tomb, r.At(i), "mask %08b: tombstone at %d", mask, i)
		}

		// Unpinned semantics are restored.
		if r.Len() > 0 {
			before := r.Len()
			r.RemoveAt(0)
			require.Equal(t, before-1, r.Len())
		}
		r.Push(12345)
	}
}

func Test_UnpinEmpty(t *testing.T) {
	r := New(tomb)
	r.Pin()
	r.Unpin()
	require.Zero(t, r.Len())
}

func Test_IndexOfAndContains(t *testing.T) {
	r := fill(t, 4)
	require.Equal(t, 2, r.IndexOf(20))
	require.True(t, r.Contains(30))
	require.False(t, r.Contains(31))
	require.Equal(t, NotFound, r.IndexOf(31))
}

func Test_SortFunc(t *testing.T) {
	r := New(tomb)
	for _, v := range []int{50, 10, 40, 20, 30} {
		r.Push(v)
	}
	r.SortFunc(cmp.Compare[int])
	require.True(t, slices.IsSorted(r.Values()))
}

func Test_InvariantViolationsPanic(t *testing.T) {
	r := fill(t, 3)

	require.PanicsWithValue(t, "registry: index 3 out of range [0,3)", func() { r.At(3) })
	require.Panics(t, func() { r.RemoveAt(-1) })
	require.Panics(t, func() { r.Push(tomb) })
	require.Panics(t, func() { r.Unpin() })

	r.Pin()
	require.PanicsWithValue(t, "registry: already pinned", func() { r.Pin() })
	require.PanicsWithValue(t, "registry: push while pinned", func() { r.Push(1) })
	require.Panics(t, func() { r.SortFunc(cmp.Compare[int]) })
	r.Unpin()
}
