package gc

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RegionInfo describes one region.
type RegionInfo struct {
	Addr   Ptr // start of the usable span
	Offset int // header offset inside the arena
	Size   int // usable bytes
	Marked bool
}

// Stats holds heap counters and a point-in-time view of both registries.
type Stats struct {
	ArenaSize   int // usable size of the initial region
	Reserved    bool
	LiveRegions int
	LiveBytes   int
	FreeRegions int
	FreeBytes   int
	LargestFree int

	Allocs      uint64 // successful Alloc calls
	Failed      uint64 // Alloc calls that ran out of memory
	Splits      uint64
	Collections uint64
	Reclaimed   uint64 // regions reclaimed over all collections
	Merges      uint64 // free regions absorbed by compaction
}

// Snapshot is a read-only view of the arena layout used by heap/verify.
type Snapshot struct {
	Base       uintptr
	ArenaBytes int // bytes reserved, headers included
	Free       []RegionInfo
	Used       []RegionInfo
}

// LiveRegions lists the in-use regions in registry order.
func (h *Heap) LiveRegions() []RegionInfo {
	return h.describe(h.used.Values())
}

// FreeRegions lists the free regions in registry order.
func (h *Heap) FreeRegions() []RegionInfo {
	return h.describe(h.free.Values())
}

func (h *Heap) describe(refs []regionRef) []RegionInfo {
	out := make([]RegionInfo, 0, len(refs))
	for _, ref := range refs {
		out = append(out, RegionInfo{
			Addr:   h.ptr(ref),
			Offset: int(ref),
			Size:   h.sizeOf(ref),
			Marked: h.marked(ref),
		})
	}
	return out
}

// ReportLive writes one line per in-use region to w and returns the count.
func (h *Heap) ReportLive(w io.Writer) int {
	return report(w, "Used regions", h.LiveRegions())
}

// ReportFree writes one line per free region to w and returns the count.
func (h *Heap) ReportFree(w io.Writer) int {
	return report(w, "Free regions", h.FreeRegions())
}

func report(w io.Writer, title string, regions []RegionInfo) int {
	p := message.NewPrinter(language.English)
	total := 0
	for _, r := range regions {
		total += r.Size
	}
	p.Fprintf(w, "%s: %d (%d bytes)\n", title, len(regions), total)
	for _, r := range regions {
		p.Fprintf(w, "++ region %s, size %d\n", fmt.Sprintf("%#x", uintptr(r.Addr)), r.Size)
	}
	return len(regions)
}

// Stats returns the heap counters.
func (h *Heap) Stats() Stats {
	st := Stats{
		ArenaSize:   h.opts.ArenaSize,
		Reserved:    h.mem != nil,
		Allocs:      h.stats.allocs,
		Failed:      h.stats.failed,
		Splits:      h.stats.splits,
		Collections: h.stats.collections,
		Reclaimed:   h.stats.reclaimed,
		Merges:      h.stats.merges,
	}
	for _, r := range h.LiveRegions() {
		st.LiveRegions++
		st.LiveBytes += r.Size
	}
	for _, r := range h.FreeRegions() {
		st.FreeRegions++
		st.FreeBytes += r.Size
		st.LargestFree = max(st.LargestFree, r.Size)
	}
	return st
}

// Snapshot captures the arena layout.
func (h *Heap) Snapshot() Snapshot {
	return Snapshot{
		Base:       h.base,
		ArenaBytes: len(h.mem),
		Free:       h.FreeRegions(),
		Used:       h.LiveRegions(),
	}
}
