// Package gc provides a conservative mark-and-sweep collector over a single arena.
//
// # Overview
//
// A Heap reserves one contiguous arena on its first allocation and carves it into
// regions. Every region is a 16-byte header followed by its usable span:
//
//	+--------+--------+----------------------+
//	| size   | flags  | usable span (size)   |
//	+--------+--------+----------------------+
//	^ header offset   ^ Ptr returned by Alloc
//
// Regions live in exactly one of two registries: free or in use. Alloc takes the first
// free region strictly larger than the request, splits off the tail when the leftover
// can hold another header plus a minimum region, zero-fills the span and moves the
// region to the in-use registry.
//
// # Collection
//
// There is no caller-driven free. Collect runs a full cycle:
//
//  1. Roots: every word produced by the heap's RootScanners that equals the start of a
//     live usable span marks that region.
//  2. Marking: a marked region's span is reinterpreted as machine words and every word
//     that looks like a live span start is marked too. Marking uses a worklist, so deep
//     or cyclic graphs cannot exhaust the goroutine stack.
//  3. Sweep: unmarked in-use regions move to the free registry; marks are cleared.
//  4. Compaction: free regions are sorted by offset and physically adjacent ones merged.
//
// # Roots
//
// Goroutine stacks move and registers are not observable from Go, so root discovery is
// pluggable instead of scanning the machine stack:
//
//   - RootSet: explicit, precise registration (every Heap owns one, see Heap.Roots)
//   - Words: conservative scan of a snapshot of machine words
//   - Memory: conservative scan of a raw byte range, word-aligned
//   - Scanners / RootFunc: composition helpers
//
// Conservative scanning may retain garbage when an unrelated word happens to equal a
// live span start. It never reclaims a reachable region.
//
// # Usage Example
//
//	h, err := gc.New(nil)
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	list, _ := h.Alloc(16)
//	node, _ := h.Alloc(24)
//	h.SetWord(list, 0, uintptr(node)) // list -> node
//	h.Roots().Add(list)
//
//	h.Collect() // both survive
//	h.Roots().Remove(list)
//	h.Collect() // both reclaimed
//
// # Thread Safety
//
// Heap instances are not thread-safe. Distinct instances may be used from different
// goroutines.
package gc
