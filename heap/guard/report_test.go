package guard

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ReportActiveCountsLeaks(t *testing.T) {
	a := newTestAllocator(t, nil)

	var ptrs []Ptr
	for i := range 6 {
		p, err := a.Alloc(100 + i)
		require.NoError(t, err)
		ptrs = append(ptrs, p)
	}
	for _, p := range ptrs[:2] {
		require.NoError(t, a.Free(p))
	}

	var out bytes.Buffer
	require.Equal(t, 4, a.ReportActive(&out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		require.Regexp(t, `^10[2-5] bytes of unfreed memory allocated at report_test\.go:\d+$`, line)
	}
	require.Len(t, a.Active(), 4)
}

func Test_ReportActiveGroupsLargeSizes(t *testing.T) {
	a := newTestAllocator(t, nil)
	mustAlloc(t, a, 5000)

	var out bytes.Buffer
	require.Equal(t, 1, a.ReportActive(&out))
	require.True(t, strings.HasPrefix(out.String(), "5,000 bytes of unfreed memory"), out.String())
}

func Test_ReportActiveEmpty(t *testing.T) {
	a := newTestAllocator(t, nil)
	var out bytes.Buffer
	require.Zero(t, a.ReportActive(&out))
	require.Empty(t, out.String())
}

func Test_AllocAtRecordsSite(t *testing.T) {
	a := newTestAllocator(t, nil)
	site := Site{File: "/src/driver/main.go", Line: 42}
	p, err := a.AllocAt(12, site)
	require.NoError(t, err)

	active := a.Active()
	require.Len(t, active, 1)
	require.Equal(t, p, active[0].Addr)
	require.Equal(t, site, active[0].Site)
	require.Equal(t, "main.go:42", site.String())
	require.Equal(t, "line 7", Site{Line: 7}.String())

	var out bytes.Buffer
	a.ReportActive(&out)
	require.Equal(t, "12 bytes of unfreed memory allocated at main.go:42\n", out.String())
	require.NoError(t, a.FreeAt(p, site))
}

func Test_StatsAndSnapshot(t *testing.T) {
	a := newTestAllocator(t, nil)
	p := mustAlloc(t, a, 10)
	q := mustAlloc(t, a, 700)
	require.NoError(t, a.Free(p))

	st := a.Stats()
	require.Equal(t, uint64(2), st.Allocs)
	require.Equal(t, uint64(1), st.Frees)
	require.Equal(t, 1, st.Active)
	require.Equal(t, 700, st.ActiveBytes)
	require.Equal(t, 8, st.Classes[0].Free)
	require.Equal(t, 3, st.Classes[1].Free)

	snap := a.Snapshot()
	require.Len(t, snap.Chunks, 15)
	require.Len(t, snap.Used, 1)
	require.Len(t, snap.Free, 14)
	require.Equal(t, q, snap.Chunks[snap.Used[0]].Addr)
	require.Equal(t, DefaultPaddingSize, snap.PaddingSize)
	require.Equal(t, byte(DefaultPaddingByte), snap.PaddingByte)

	c := chunkAt(t, a, q)
	require.Equal(t, fmt.Sprintf("chunk %d class 1 at %#x used 700 by %s", c.Index, uintptr(q), c.Site), c.String())
}
