package guard

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ChunkInfo describes one chunk.
type ChunkInfo struct {
	Index    int
	Class    int
	Offset   int // leading padding offset inside the arena
	Addr     Ptr // start of the usable span
	Size     int // whole chunk, padding included
	MaxBytes int // exclusive bound on requests this chunk accepts
	Used     int // requested bytes, -1 when free
	Site     Site
}

// Free reports whether the chunk is free.
func (c ChunkInfo) Free() bool {
	return c.Used == notUsed
}

// ClassStats holds per size class counts.
type ClassStats struct {
	ChunkSize int
	Chunks    int
	Free      int
}

// Stats holds allocator counters.
type Stats struct {
	Classes     [NumClasses]ClassStats
	Chunks      int
	Active      int
	ActiveBytes int

	Allocs    uint64
	Frees     uint64
	Exhausted uint64
	Poisoned  bool
}

// Snapshot is a read-only view of the arena used by heap/verify.
type Snapshot struct {
	Memory      []byte
	PaddingSize int
	PaddingByte byte
	Chunks      []ChunkInfo // table order
	Free        []int       // chunk indices in the free registries, class order
	Used        []int       // chunk indices in the used registry
}

// Active lists the chunks in use, in used registry order.
func (a *Allocator) Active() []ChunkInfo {
	if a.closed {
		return nil
	}
	idxs := a.used.Values()
	out := make([]ChunkInfo, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, a.info(idx))
	}
	return out
}

// ReportActive writes one line per chunk in use to w and returns the count.
func (a *Allocator) ReportActive(w io.Writer) int {
	p := message.NewPrinter(language.English)
	active := a.Active()
	for _, c := range active {
		p.Fprintf(w, "%d bytes of unfreed memory allocated at %s\n", c.Used, c.Site.String())
	}
	return len(active)
}

// Stats returns the allocator counters.
func (a *Allocator) Stats() Stats {
	st := Stats{
		Allocs:    a.stats.allocs,
		Frees:     a.stats.frees,
		Exhausted: a.stats.exhausted,
		Poisoned:  a.fatal != nil,
		Chunks:    len(a.chunks),
	}
	for class, size := range a.opts.ChunkSizes {
		st.Classes[class].ChunkSize = size
		if !a.closed {
			st.Classes[class].Free = a.free[class].Len()
		}
	}
	for i := range a.chunks {
		c := &a.chunks[i]
		st.Classes[c.class].Chunks++
		if c.used != notUsed {
			st.Active++
			st.ActiveBytes += c.used
		}
	}
	return st
}

// Snapshot captures the arena layout.
func (a *Allocator) Snapshot() Snapshot {
	s := Snapshot{
		Memory:      a.mem,
		PaddingSize: a.opts.PaddingSize,
		PaddingByte: a.opts.PaddingByte,
		Chunks:      make([]ChunkInfo, 0, len(a.chunks)),
	}
	for i := range a.chunks {
		s.Chunks = append(s.Chunks, a.info(i))
	}
	if a.closed {
		return s
	}
	for _, free := range a.free {
		s.Free = append(s.Free, free.Values()...)
	}
	s.Used = a.used.Values()
	return s
}

func (a *Allocator) info(idx int) ChunkInfo {
	c := &a.chunks[idx]
	return ChunkInfo{
		Index:    idx,
		Class:    c.class,
		Offset:   c.start,
		Addr:     a.ptr(c),
		Size:     c.size,
		MaxBytes: c.maxBytes(a.opts.PaddingSize),
		Used:     c.used,
		Site:     c.site,
	}
}

func (c ChunkInfo) String() string {
	if c.Free() {
		return fmt.Sprintf("chunk %d class %d at %#x free", c.Index, c.Class, uintptr(c.Addr))
	}
	return fmt.Sprintf("chunk %d class %d at %#x used %d by %s", c.Index, c.Class, uintptr(c.Addr), c.Used, c.Site)
}
