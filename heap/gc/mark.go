package gc

import "github.com/joshuapare/memdebug/internal/buf"

// mark sets the reachability flag on ref and on every region transitively referenced
// from its span. It returns the number of regions newly marked. Already-marked regions
// are skipped, which terminates cycles.
func (h *Heap) mark(ref regionRef) int {
	if h.marked(ref) {
		return 0
	}
	h.setMarked(ref, true)
	h.work = append(h.work[:0], ref)
	n := 1

	for len(h.work) > 0 {
		cur := h.work[len(h.work)-1]
		h.work = h.work[:len(h.work)-1]

		span := h.payload(cur)
		for off := 0; off+buf.WordSize <= len(span); off += buf.WordSize {
			child, ok := h.lookup(uintptr(buf.Word(span, off)))
			if !ok || h.marked(child) {
				continue
			}
			h.log.Trace("gc: found child", "parent", int(cur), "child", int(child))
			h.setMarked(child, true)
			h.work = append(h.work, child)
			n++
		}
	}
	return n
}
