// Package verify provides structural checks for gc heaps and guard allocators.
//
// # Overview
//
// The checks work on snapshots, so they never mutate the engine being inspected. They
// are used by tests and by memctl stress after every collection.
//
//	if err := verify.Heap(h.Snapshot()); err != nil {
//	    fmt.Printf("heap corrupt: %v\n", err)
//	}
//
// Heap validates:
//   - Every region offset and size is 8-byte aligned and at least the minimum size
//   - Regions tile the arena exactly: no overlap, no gap
//   - No region is listed twice, or in both registries
//   - No region carries a mark outside a collection
//
// Guard validates:
//   - Chunks lie inside the arena without overlap
//   - Every chunk is in exactly one registry, matching its used state
//   - Leading padding of every chunk and trailing padding of used chunks are intact
//
// Membership and coverage are tracked with roaring bitmaps.
//
// # ValidationError
//
// All functions return *ValidationError on failure:
//
//	type ValidationError struct {
//	    Type    string         // Check category (e.g., "HeapLayout")
//	    Message string         // Human-readable description
//	    Offset  int            // Arena offset where the error occurred (-1 if N/A)
//	    Details map[string]any // Additional context
//	}
package verify
