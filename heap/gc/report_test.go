package gc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ReportLiveAndFree(t *testing.T) {
	h := newTestHeap(t, 4096)
	a := mustAlloc(t, h, 100)
	mustAlloc(t, h, 50)
	h.Roots().Add(a)

	var out bytes.Buffer
	require.Equal(t, 2, h.ReportLive(&out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "Used regions: 2 (160 bytes)", lines[0])
	require.Contains(t, lines[1], "size 104")

	out.Reset()
	require.Equal(t, 1, h.ReportFree(&out))
	require.Contains(t, out.String(), "size 3,904")

	h.Collect()
	out.Reset()
	require.Equal(t, 1, h.ReportLive(&out))
	require.Contains(t, out.String(), "Used regions: 1 (104 bytes)")
}

func Test_ReportLiveEmptyAfterCollect(t *testing.T) {
	h := newTestHeap(t, 1000)
	mustAlloc(t, h, 100)
	mustAlloc(t, h, 50)
	h.Collect()

	var out bytes.Buffer
	require.Zero(t, h.ReportLive(&out))
	require.Equal(t, "Used regions: 0 (0 bytes)\n", out.String())
}

func Test_StatsAndSnapshot(t *testing.T) {
	h := newTestHeap(t, 2048)
	a := mustAlloc(t, h, 64)
	mustAlloc(t, h, 64)
	h.Roots().Add(a)
	h.Collect()

	st := h.Stats()
	require.True(t, st.Reserved)
	require.Equal(t, 1, st.LiveRegions)
	require.Equal(t, 64, st.LiveBytes)
	require.EqualValues(t, 2, st.Allocs)
	require.EqualValues(t, 2, st.Splits)
	require.EqualValues(t, 1, st.Reclaimed)
	require.EqualValues(t, 1, st.Merges)
	require.Equal(t, 2048-64-HeaderSize, st.FreeBytes)
	require.Equal(t, st.FreeBytes, st.LargestFree)

	snap := h.Snapshot()
	require.Equal(t, 2048+HeaderSize, snap.ArenaBytes)
	require.Len(t, snap.Used, 1)
	require.Equal(t, a, snap.Used[0].Addr)
	require.Equal(t, uintptr(a), snap.Base+uintptr(snap.Used[0].Offset)+HeaderSize)
}
