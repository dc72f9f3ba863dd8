package gc

import (
	"fmt"

	"github.com/joshuapare/memdebug/internal/buf"
)

// Alloc returns a zero-filled usable span of at least size bytes. The request is rounded
// up to MinRegionSize and then to a multiple of Alignment.
//
// Allocation is first-fit: the first free region strictly larger than the rounded
// request is taken. When no region fits the failure is logged and ErrOutOfMemory
// returned; the heap stays usable.
func (h *Heap) Alloc(size int) (Ptr, error) {
	if h.closed {
		return 0, ErrClosed
	}
	if size < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if err := h.init(); err != nil {
		return 0, err
	}

	need, ok := buf.AlignUp(max(size, MinRegionSize), Alignment)
	if !ok || need > h.opts.ArenaSize {
		return 0, h.outOfMemory(size)
	}
	h.log.Trace("gc: alloc", "size", size, "adjusted", need)

	for i := 0; i < h.free.Len(); i++ {
		ref := h.free.At(i)
		found := h.sizeOf(ref)
		if need >= found {
			continue
		}

		h.free.RemoveAt(i)
		h.log.Trace("gc: found region", "off", int(ref), "size", found)

		if found-need >= HeaderSize+MinRegionSize {
			h.split(ref, need)
		}

		h.setMarked(ref, false)
		clear(h.payload(ref))
		h.used.Push(ref)
		h.stats.allocs++
		return h.ptr(ref), nil
	}

	return 0, h.outOfMemory(need)
}

// split shrinks ref to need bytes and returns the tail to the free registry as a new
// region.
func (h *Heap) split(ref regionRef, need int) {
	found := h.sizeOf(ref)
	next := ref + regionRef(HeaderSize+need)
	h.setSize(next, found-need-HeaderSize)
	h.setMarked(next, false)
	h.setSize(ref, need)
	h.free.Push(next)
	h.stats.splits++

	h.log.Trace("gc: split region",
		"off", int(ref),
		"size", need,
		"tail_off", int(next),
		"tail_size", found-need-HeaderSize)
}

func (h *Heap) outOfMemory(size int) error {
	h.stats.failed++
	h.log.Error("gc: unable to allocate", "size", size, "free_regions", h.free.Len())
	return fmt.Errorf("%w: unable to allocate %d bytes", ErrOutOfMemory, size)
}
