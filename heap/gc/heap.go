package gc

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/memdebug/heap/registry"
	"github.com/joshuapare/memdebug/internal/buf"
	"github.com/joshuapare/memdebug/internal/logger"
	"github.com/joshuapare/memdebug/internal/mmap"
)

// Ptr is the address of a region's usable span. The zero Ptr is nil.
type Ptr uintptr

// regionRef is the byte offset of a region header inside the arena.
type regionRef int

// noRegion is the registry tombstone.
const noRegion regionRef = -1

const (
	sizeWord  = 0
	flagsWord = 8

	flagMarked = 1
)

// Heap is a conservative mark-and-sweep heap over one lazily reserved arena.
type Heap struct {
	opts Options
	log  *logger.Logger

	mem     []byte
	release func() error
	base    uintptr // address of mem[0]
	end     uintptr // base + len(mem)

	free *registry.Registry[regionRef]
	used *registry.Registry[regionRef]

	roots *RootSet
	work  []regionRef // mark worklist, reused across cycles

	stats  counters
	closed bool
}

type counters struct {
	allocs      uint64
	failed      uint64
	splits      uint64
	collections uint64
	reclaimed   uint64
	merges      uint64
}

// New creates a heap. Nil options use DefaultOptions. No memory is reserved until the
// first Alloc.
func New(opts *Options) (*Heap, error) {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &Heap{
		opts:  o,
		log:   o.logger(),
		free:  registry.New(noRegion),
		used:  registry.New(noRegion),
		roots: NewRootSet(),
	}, nil
}

// init reserves the arena and seeds the free registry with a single region. It runs
// once, on the first allocation.
func (h *Heap) init() error {
	if h.mem != nil {
		return nil
	}

	total := h.opts.ArenaSize + HeaderSize
	reserve := mmap.Reserve
	if h.opts.UseHeap {
		reserve = mmap.ReserveHeap
	}
	mem, release, err := reserve(total)
	if err != nil {
		return fmt.Errorf("gc: arena: %w", err)
	}

	h.mem = mem
	h.release = release
	h.base = uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
	h.end = h.base + uintptr(len(mem))

	h.setSize(0, h.opts.ArenaSize)
	h.setMarked(0, false)
	h.free.Push(0)

	h.log.Debug("gc: arena reserved",
		"base", fmt.Sprintf("%#x", h.base),
		"bytes", total,
		"usable", h.opts.ArenaSize)
	return nil
}

// Close releases the arena. Every Ptr handed out becomes invalid.
func (h *Heap) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.free = registry.New(noRegion)
	h.used = registry.New(noRegion)
	h.roots.Clear()

	if h.release == nil {
		return nil
	}
	err := h.release()
	h.mem, h.release = nil, nil
	h.base, h.end = 0, 0
	return err
}

// Roots returns the heap's explicit root set.
func (h *Heap) Roots() *RootSet {
	return h.roots
}

// Owns reports whether addr is the start of the usable span of a live region. Addresses
// inside a span, or of a free region, do not qualify.
func (h *Heap) Owns(addr uintptr) bool {
	_, ok := h.lookup(addr)
	return ok
}

// lookup is the conservative-pointer test.
func (h *Heap) lookup(addr uintptr) (regionRef, bool) {
	if h.mem == nil || addr <= h.base || addr >= h.end {
		return noRegion, false
	}
	off := int(addr-h.base) - HeaderSize
	if off < 0 || off%Alignment != 0 {
		return noRegion, false
	}
	ref := regionRef(off)
	if !h.used.Contains(ref) {
		return noRegion, false
	}
	return ref, true
}

// Bytes returns the usable span of a live region, or nil.
func (h *Heap) Bytes(p Ptr) []byte {
	ref, ok := h.lookup(uintptr(p))
	if !ok {
		return nil
	}
	return h.payload(ref)
}

// SizeOf returns the usable size of a live region, or 0.
func (h *Heap) SizeOf(p Ptr) int {
	ref, ok := h.lookup(uintptr(p))
	if !ok {
		return 0
	}
	return h.sizeOf(ref)
}

// Word returns the machine word stored in slot of a live region.
// It panics when p is not live or slot is out of range.
func (h *Heap) Word(p Ptr, slot int) uintptr {
	span := h.mustSpan(p, slot)
	return uintptr(buf.Word(span, slot*buf.WordSize))
}

// SetWord stores v in slot of a live region. Storing another region's Ptr creates a
// reference the collector follows.
// It panics when p is not live or slot is out of range.
func (h *Heap) SetWord(p Ptr, slot int, v uintptr) {
	span := h.mustSpan(p, slot)
	buf.PutWord(span, slot*buf.WordSize, uint64(v))
}

func (h *Heap) mustSpan(p Ptr, slot int) []byte {
	span := h.Bytes(p)
	if span == nil {
		panic(fmt.Sprintf("gc: %#x is not a live region", uintptr(p)))
	}
	if slot < 0 || (slot+1)*buf.WordSize > len(span) {
		panic(fmt.Sprintf("gc: slot %d out of range for %d-byte region %#x", slot, len(span), uintptr(p)))
	}
	return span
}

// Header access.

func (h *Heap) sizeOf(ref regionRef) int {
	return int(buf.Word(h.mem, int(ref)+sizeWord))
}

func (h *Heap) setSize(ref regionRef, size int) {
	buf.PutWord(h.mem, int(ref)+sizeWord, uint64(size))
}

func (h *Heap) marked(ref regionRef) bool {
	return buf.Word(h.mem, int(ref)+flagsWord)&flagMarked != 0
}

func (h *Heap) setMarked(ref regionRef, marked bool) {
	flags := buf.Word(h.mem, int(ref)+flagsWord) &^ flagMarked
	if marked {
		flags |= flagMarked
	}
	buf.PutWord(h.mem, int(ref)+flagsWord, flags)
}

func (h *Heap) payload(ref regionRef) []byte {
	start := int(ref) + HeaderSize
	return h.mem[start : start+h.sizeOf(ref) : start+h.sizeOf(ref)]
}

func (h *Heap) ptr(ref regionRef) Ptr {
	return Ptr(h.base + uintptr(ref) + HeaderSize)
}
