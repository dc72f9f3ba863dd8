package guard

import (
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/joshuapare/memdebug/heap/registry"
	"github.com/joshuapare/memdebug/internal/buf"
	"github.com/joshuapare/memdebug/internal/logger"
	"github.com/joshuapare/memdebug/internal/mmap"
)

// Ptr is the address of a chunk's usable span.
type Ptr uintptr

// notUsed marks a free chunk.
const notUsed = -1

// noChunk is the registry tombstone.
const noChunk = -1

// chunk is one fixed-size slot of the arena. Offsets are relative to the arena start.
type chunk struct {
	class  int
	start  int // leading padding
	usable int // start + PaddingSize
	size   int // whole chunk, padding included
	used   int // requested bytes, notUsed when free
	site   Site
}

func (c *chunk) maxBytes(pad int) int {
	return c.size - 2*pad
}

// Allocator is a guarded fixed-chunk allocator.
type Allocator struct {
	opts Options
	log  *logger.Logger

	mem     []byte
	release func() error
	base    uintptr

	chunks   []chunk
	byUsable map[int]int // usable offset -> chunk index

	free [NumClasses]*registry.Registry[int]
	used *registry.Registry[int]

	stats  counters
	fatal  error
	closed bool
}

type counters struct {
	allocs    uint64
	frees     uint64
	exhausted uint64
}

// New reserves totalSize bytes and carves them into guarded chunks. The arena is split
// into four equal quarters, one per size class in ascending order. The carving position
// carries over between quarters, so a chunk never straddles into the next quarter's
// budget by more than the previous class left unused. Nil options use DefaultOptions.
func New(totalSize int, opts *Options) (*Allocator, error) {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	if totalSize <= 0 {
		return nil, fmt.Errorf("%w: arena size %d", ErrInvalidSize, totalSize)
	}

	reserve := mmap.Reserve
	if o.UseHeap {
		reserve = mmap.ReserveHeap
	}
	mem, release, err := reserve(totalSize)
	if err != nil {
		return nil, fmt.Errorf("guard: arena: %w", err)
	}

	a := &Allocator{
		opts:     o,
		log:      o.logger(),
		mem:      mem,
		release:  release,
		base:     uintptr(unsafe.Pointer(unsafe.SliceData(mem))),
		byUsable: make(map[int]int),
		used:     registry.New(noChunk),
	}
	for i := range a.free {
		a.free[i] = registry.New(noChunk)
	}
	a.carve(totalSize)

	a.log.Debug("guard: arena reserved",
		"base", fmt.Sprintf("%#x", a.base),
		"bytes", totalSize,
		"chunks", len(a.chunks))
	return a, nil
}

func (a *Allocator) carve(total int) {
	quarter := total / NumClasses
	pos, limit := 0, 0
	for class, size := range a.opts.ChunkSizes {
		limit += quarter
		for pos+size <= limit {
			idx := len(a.chunks)
			c := chunk{
				class:  class,
				start:  pos,
				usable: pos + a.opts.PaddingSize,
				size:   size,
				used:   notUsed,
			}
			buf.Fill(a.mem[c.start:c.usable], a.opts.PaddingByte)
			a.chunks = append(a.chunks, c)
			a.byUsable[c.usable] = idx
			a.free[class].Push(idx)
			pos += size
		}
	}
}

// Alloc returns a chunk with at least size usable bytes and records the caller as the
// allocation site. Exhaustion returns ErrExhausted.
func (a *Allocator) Alloc(size int) (Ptr, error) {
	return a.AllocAt(size, Caller(1))
}

// AllocAt is Alloc with an explicit allocation site.
func (a *Allocator) AllocAt(size int, site Site) (Ptr, error) {
	if err := a.usable(); err != nil {
		return 0, err
	}
	if size < 0 || size > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d", ErrTooLarge, size)
	}

	for class := range a.free {
		free := a.free[class]
		if free.Len() == 0 {
			continue
		}
		idx := free.At(0)
		c := &a.chunks[idx]
		if size >= c.maxBytes(a.opts.PaddingSize) {
			continue
		}

		free.RemoveAt(0)
		c.used = size
		c.site = site
		buf.Fill(a.mem[c.usable+size:c.usable+size+a.opts.PaddingSize], a.opts.PaddingByte)
		a.used.Push(idx)
		a.stats.allocs++

		if a.log.TraceEnabled() {
			a.log.Trace("guard: alloc",
				"size", size,
				"class", class,
				"addr", fmt.Sprintf("%#x", a.base+uintptr(c.usable)),
				"site", site.String())
		}
		return a.ptr(c), nil
	}

	a.stats.exhausted++
	return 0, fmt.Errorf("%w: %d bytes", ErrExhausted, size)
}

// Free returns the chunk at p after validating both paddings, recording the caller as
// the free site. Unknown addresses, double frees and damaged padding are fatal.
func (a *Allocator) Free(p Ptr) error {
	return a.FreeAt(p, Caller(1))
}

// FreeAt is Free with an explicit free site.
func (a *Allocator) FreeAt(p Ptr, site Site) error {
	if err := a.usable(); err != nil {
		return err
	}

	idx, ok := a.find(p)
	if !ok {
		return a.fail(&ProtocolError{Kind: UnknownAddress, Addr: p, FreeSite: site})
	}
	c := &a.chunks[idx]
	if c.used == notUsed {
		return a.fail(&ProtocolError{Kind: DoubleFree, Addr: p, FreeSite: site, AllocSite: c.site})
	}
	if err := a.check(c, site); err != nil {
		return a.fail(err)
	}

	slot := a.used.IndexOf(idx)
	if slot == registry.NotFound {
		panic(fmt.Sprintf("guard: chunk %d in use but not registered", idx))
	}
	a.used.RemoveAt(slot)
	c.used = notUsed
	a.free[c.class].Push(idx)
	a.stats.frees++

	if a.log.TraceEnabled() {
		a.log.Trace("guard: free",
			"addr", fmt.Sprintf("%#x", uintptr(p)),
			"class", c.class,
			"site", site.String())
	}
	return nil
}

func (a *Allocator) find(p Ptr) (int, bool) {
	addr := uintptr(p)
	if addr < a.base || addr >= a.base+uintptr(len(a.mem)) {
		return 0, false
	}
	idx, ok := a.byUsable[int(addr-a.base)]
	return idx, ok
}

// check validates the leading padding, then the trailing padding, of a used chunk.
func (a *Allocator) check(c *chunk, site Site) error {
	pad := a.opts.PaddingSize
	lead := a.mem[c.start:c.usable]
	if i := buf.FirstMismatch(lead, a.opts.PaddingByte); i >= 0 {
		return &CorruptionError{
			Direction: Before,
			Distance:  pad - i,
			Used:      c.used,
			Addr:      a.ptr(c),
			Found:     lead[i],
			AllocSite: c.site,
			FreeSite:  site,
		}
	}
	trail := a.mem[c.usable+c.used : c.usable+c.used+pad]
	if i := buf.FirstMismatch(trail, a.opts.PaddingByte); i >= 0 {
		return &CorruptionError{
			Direction: After,
			Distance:  i + 1,
			Used:      c.used,
			Addr:      a.ptr(c),
			Found:     trail[i],
			AllocSite: c.site,
			FreeSite:  site,
		}
	}
	return nil
}

// fail records a fatal error and poisons the allocator.
func (a *Allocator) fail(err error) error {
	a.fatal = err
	a.log.Error(err.Error())
	if a.opts.OnFatal != nil {
		a.opts.OnFatal(err)
	}
	return err
}

func (a *Allocator) usable() error {
	switch {
	case a.closed:
		return ErrClosed
	case a.fatal != nil:
		return fmt.Errorf("%w: %w", ErrPoisoned, a.fatal)
	}
	return nil
}

// Poisoned reports the fatal error that poisoned the allocator, if any.
func (a *Allocator) Poisoned() error {
	return a.fatal
}

// Bytes returns the usable span at p. Its length is the requested size and its capacity
// reaches the end of the chunk, trailing padding included.
func (a *Allocator) Bytes(p Ptr) ([]byte, error) {
	if a.closed {
		return nil, ErrClosed
	}
	idx, ok := a.find(p)
	if !ok {
		return nil, fmt.Errorf("%w: %#x", ErrUnknownAddress, uintptr(p))
	}
	c := &a.chunks[idx]
	if c.used == notUsed {
		return nil, fmt.Errorf("%w: %#x is not allocated", ErrUnknownAddress, uintptr(p))
	}
	end := c.start + c.size
	return a.mem[c.usable : c.usable+c.used : end], nil
}

// Close releases the arena. Chunks still in use are abandoned.
func (a *Allocator) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.chunks = nil
	a.byUsable = nil
	a.mem = nil
	if err := a.release(); err != nil {
		return fmt.Errorf("guard: release arena: %w", err)
	}
	return nil
}

func (a *Allocator) ptr(c *chunk) Ptr {
	return Ptr(a.base + uintptr(c.usable))
}

// IsFatal reports whether err is one of the fatal error kinds.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnknownAddress) ||
		errors.Is(err, ErrDoubleFree) ||
		errors.Is(err, ErrCorruption)
}
