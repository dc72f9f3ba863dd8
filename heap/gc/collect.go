package gc

import (
	"cmp"
	"fmt"
)

// CollectStats summarizes one collection cycle.
type CollectStats struct {
	Roots          int // root words that designated a live region
	Marked         int // regions found reachable
	Reclaimed      int // regions moved to the free registry
	ReclaimedBytes int // usable bytes of the reclaimed regions
	Merged         int // free regions absorbed by compaction
	Live           int // in-use regions after the cycle
	Free           int // free regions after the cycle
}

// Collect runs a full cycle: root discovery, marking, sweep and compaction of the free
// registry. Collecting a heap that never allocated, or a closed heap, does nothing.
func (h *Heap) Collect() CollectStats {
	var st CollectStats
	if h.closed || h.mem == nil {
		return st
	}

	visit := func(word uintptr) {
		ref, ok := h.lookup(word)
		if !ok {
			return
		}
		st.Roots++
		st.Marked += h.mark(ref)
	}
	h.roots.ScanRoots(visit)
	for _, s := range h.opts.Roots {
		s.ScanRoots(visit)
	}

	st.Reclaimed, st.ReclaimedBytes = h.sweep()
	st.Merged = h.compact()
	st.Live = h.used.Len()
	st.Free = h.free.Len()

	h.stats.collections++
	h.stats.reclaimed += uint64(st.Reclaimed)
	h.stats.merges += uint64(st.Merged)

	h.log.Debug("gc: collect done",
		"roots", st.Roots,
		"marked", st.Marked,
		"reclaimed", st.Reclaimed,
		"reclaimed_bytes", st.ReclaimedBytes,
		"merged", st.Merged,
		"live", st.Live,
		"free", st.Free)
	return st
}

// sweep moves every unmarked in-use region to the free registry and clears the marks of
// the survivors.
func (h *Heap) sweep() (regions, bytes int) {
	h.used.Pin()
	defer h.used.Unpin()

	for i := 0; i < h.used.Len(); i++ {
		ref := h.used.At(i)
		if h.marked(ref) {
			h.setMarked(ref, false)
			continue
		}
		h.log.Trace("gc: freeing region", "off", int(ref), "size", h.sizeOf(ref))
		h.used.RemoveAt(i)
		h.free.Push(ref)
		regions++
		bytes += h.sizeOf(ref)
	}
	return regions, bytes
}

// compact merges physically adjacent free regions. It returns the number of regions
// absorbed into a predecessor.
func (h *Heap) compact() int {
	h.free.SortFunc(cmp.Compare[regionRef])
	h.free.Pin()
	defer h.free.Unpin()

	n := h.free.Len()
	if n < 2 {
		return 0
	}

	merged := 0
	cur := h.free.At(0)
	for i := 1; i < n; i++ {
		next := h.free.At(i)
		if cur+regionRef(HeaderSize+h.sizeOf(cur)) != next {
			cur = next
			continue
		}
		if h.log.TraceEnabled() {
			h.log.Trace(fmt.Sprintf("gc: combining region %d of size %d with region %d of size %d",
				int(cur), h.sizeOf(cur), int(next), h.sizeOf(next)))
		}
		h.setSize(cur, h.sizeOf(cur)+HeaderSize+h.sizeOf(next))
		h.free.RemoveAt(i)
		merged++
	}
	return merged
}
