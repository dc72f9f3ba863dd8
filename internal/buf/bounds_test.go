package buf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddOverflowSafe(t *testing.T) {
	sum, ok := AddOverflowSafe(10, 5)
	require.True(t, ok)
	require.Equal(t, 15, sum)

	_, ok = AddOverflowSafe(math.MaxInt, 1)
	require.False(t, ok, "expected overflow when adding to MaxInt")

	_, ok = AddOverflowSafe(math.MinInt, -1)
	require.False(t, ok, "expected underflow when subtracting from MinInt")
}

func TestMulOverflowSafe(t *testing.T) {
	got, ok := MulOverflowSafe(4, 256)
	require.True(t, ok)
	require.Equal(t, 1024, got)

	got, ok = MulOverflowSafe(0, math.MaxInt)
	require.True(t, ok)
	require.Zero(t, got)

	_, ok = MulOverflowSafe(math.MaxInt/2+1, 2)
	require.False(t, ok)

	_, ok = MulOverflowSafe(-1, 2)
	require.False(t, ok)
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		n, align, want int
		ok             bool
	}{
		{0, 8, 0, true},
		{1, 8, 8, true},
		{8, 8, 8, true},
		{9, 8, 16, true},
		{100, 8, 104, true},
		{13, 16, 16, true},
		{-1, 8, 0, false},
		{5, 6, 0, false},
		{math.MaxInt, 8, 0, false},
	}
	for _, tt := range tests {
		got, ok := AlignUp(tt.n, tt.align)
		require.Equal(t, tt.ok, ok, "AlignUp(%d, %d)", tt.n, tt.align)
		if tt.ok {
			require.Equal(t, tt.want, got, "AlignUp(%d, %d)", tt.n, tt.align)
		}
	}
}

func TestSliceAndHas(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4}

	got, ok := Slice(data, 1, 3)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, got)

	_, ok = Slice(data, 4, 2)
	require.False(t, ok, "Slice should fail when extending beyond len")
	require.False(t, Has(data, 2, 4))
	require.True(t, Has(data, 2, 1))

	_, ok = Slice(data, -1, 1)
	require.False(t, ok, "Slice should reject negative offset")
	_, ok = Slice(data, 1, -1)
	require.False(t, ok, "Slice should reject negative length")
}
