package gc

import (
	"unsafe"

	"github.com/joshuapare/memdebug/internal/buf"
)

// RootScanner produces candidate root words for a collection. Every word is tested
// against the heap; words that do not designate a live span are ignored, so scanners
// may be conservative.
type RootScanner interface {
	ScanRoots(visit func(word uintptr))
}

// RootFunc adapts a function to RootScanner.
type RootFunc func(visit func(word uintptr))

// ScanRoots calls f.
func (f RootFunc) ScanRoots(visit func(word uintptr)) { f(visit) }

// Scanners combines several scanners into one.
type Scanners []RootScanner

// ScanRoots runs every scanner in order.
func (s Scanners) ScanRoots(visit func(word uintptr)) {
	for _, sc := range s {
		sc.ScanRoots(visit)
	}
}

// Words is a conservative scanner over a snapshot of machine words, such as a saved
// register file or a copy of stack slots.
type Words []uintptr

// ScanRoots visits every word.
func (w Words) ScanRoots(visit func(word uintptr)) {
	for _, v := range w {
		visit(v)
	}
}

// Memory is a conservative scanner over a raw byte range. Scanning starts at the first
// word-aligned address inside the range and reads native-endian words.
type Memory []byte

// ScanRoots visits every aligned word of the range.
func (m Memory) ScanRoots(visit func(word uintptr)) {
	if len(m) == 0 {
		return
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(m)))
	start := int((buf.WordSize - addr%buf.WordSize) % buf.WordSize)
	for off := start; off+buf.WordSize <= len(m); off += buf.WordSize {
		visit(uintptr(buf.Word(m, off)))
	}
}

// RootSet is an explicit root registry. Unlike the conservative scanners it is precise:
// only registered pointers are roots. Registrations are counted, so a pointer added
// twice stays a root until removed twice.
type RootSet struct {
	refs map[Ptr]int
}

// NewRootSet creates an empty root set.
func NewRootSet() *RootSet {
	return &RootSet{refs: make(map[Ptr]int)}
}

// Add registers p as a root. Adding the nil Ptr does nothing.
func (s *RootSet) Add(p Ptr) {
	if p == 0 {
		return
	}
	s.refs[p]++
}

// Remove drops one registration of p and reports whether p was registered.
func (s *RootSet) Remove(p Ptr) bool {
	n, ok := s.refs[p]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(s.refs, p)
	} else {
		s.refs[p] = n - 1
	}
	return true
}

// Has reports whether p is registered.
func (s *RootSet) Has(p Ptr) bool {
	return s.refs[p] > 0
}

// Len returns the number of distinct registered pointers.
func (s *RootSet) Len() int {
	return len(s.refs)
}

// Clear drops every registration.
func (s *RootSet) Clear() {
	clear(s.refs)
}

// ScanRoots visits every registered pointer once.
func (s *RootSet) ScanRoots(visit func(word uintptr)) {
	for p := range s.refs {
		visit(uintptr(p))
	}
}
