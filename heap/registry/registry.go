// Package registry provides the unordered, pinnable collection used by the arena engines
// to track free and in-use regions.
//
// Elements are inserted with Push and removed with RemoveAt. Removal normally moves the
// last element into the vacated slot, so indices are not stable across removals.
//
// To remove elements while iterating, Pin the registry first. A pinned registry writes a
// tombstone in place of each removed element and keeps its length, so every index seen
// by the loop stays valid. Unpin compacts the tombstones away:
//
//	r.Pin()
//	for i := 0; i < r.Len(); i++ {
//	    v := r.At(i)
//	    if v == tombstone {
//	        continue
//	    }
//	    if dead(v) {
//	        r.RemoveAt(i)
//	    }
//	}
//	r.Unpin()
//
// Misuse (pinning twice, pushing while pinned, out-of-range indices) is a programming
// error and panics.
package registry

import (
	"fmt"
	"slices"
)

// NotFound is returned by IndexOf when the element is absent. It is never a valid index.
const NotFound = -1

const initialCapacity = 10

// Registry is an unordered collection of comparable elements with stable-index iteration
// support.
type Registry[T comparable] struct {
	items     []T
	tombstone T
	pinned    bool
}

// New creates an empty, unpinned registry. The tombstone marks removed slots while the
// registry is pinned and can never be pushed.
func New[T comparable](tombstone T) *Registry[T] {
	return &Registry[T]{
		items:     make([]T, 0, initialCapacity),
		tombstone: tombstone,
	}
}

// Push appends v.
func (r *Registry[T]) Push(v T) {
	if r.pinned {
		panic("registry: push while pinned")
	}
	if v == r.tombstone {
		panic(fmt.Sprintf("registry: push of tombstone value %v", v))
	}
	if len(r.items) == cap(r.items) {
		grown := make([]T, len(r.items), max(2*cap(r.items), initialCapacity))
		copy(grown, r.items)
		r.items = grown
	}
	r.items = append(r.items, v)
}

// RemoveAt removes and returns the element at index i.
func (r *Registry[T]) RemoveAt(i int) T {
	r.check(i)
	v := r.items[i]
	if r.pinned {
		r.items[i] = r.tombstone
		return v
	}
	last := len(r.items) - 1
	r.items[i] = r.items[last]
	r.items[last] = r.tombstone
	r.items = r.items[:last]
	return v
}

// Len returns the logical element count, tombstones included while pinned.
func (r *Registry[T]) Len() int {
	return len(r.items)
}

// Cap returns the backing capacity.
func (r *Registry[T]) Cap() int {
	return cap(r.items)
}

// At returns the element at index i. While pinned, removed slots hold the tombstone.
func (r *Registry[T]) At(i int) T {
	r.check(i)
	return r.items[i]
}

// Tombstone returns the value written into removed slots while pinned.
func (r *Registry[T]) Tombstone() T {
	return r.tombstone
}

// IndexOf returns the index of v, or NotFound.
func (r *Registry[T]) IndexOf(v T) int {
	for i, item := range r.items {
		if item == v {
			return i
		}
	}
	return NotFound
}

// Contains reports whether v is present.
func (r *Registry[T]) Contains(v T) bool {
	return r.IndexOf(v) != NotFound
}

// Pinned reports whether the registry is pinned.
func (r *Registry[T]) Pinned() bool {
	return r.pinned
}

// Pin freezes element positions until Unpin.
func (r *Registry[T]) Pin() {
	if r.pinned {
		panic("registry: already pinned")
	}
	r.pinned = true
}

// Unpin releases a pin and compacts the tombstones left by pinned removals: live
// elements are moved to the front with a two-pointer scan and trailing tombstones are
// trimmed from the length.
func (r *Registry[T]) Unpin() {
	if !r.pinned {
		panic("registry: unpin without pin")
	}
	r.pinned = false

	// [0, w) is live and (rd, len) is tombstones.
	w, rd := 0, len(r.items)-1
	for w < rd {
		switch {
		case r.items[w] != r.tombstone:
			w++
		case r.items[rd] == r.tombstone:
			rd--
		default:
			r.items[w], r.items[rd] = r.items[rd], r.tombstone
			w++
			rd--
		}
	}

	n := len(r.items)
	for n > 0 && r.items[n-1] == r.tombstone {
		n--
	}
	r.items = r.items[:n]
}

// SortFunc orders the elements with cmp. Only allowed while unpinned.
func (r *Registry[T]) SortFunc(cmp func(a, b T) int) {
	if r.pinned {
		panic("registry: sort while pinned")
	}
	slices.SortFunc(r.items, cmp)
}

// Values returns a copy of the live elements.
func (r *Registry[T]) Values() []T {
	out := make([]T, 0, len(r.items))
	for _, v := range r.items {
		if v != r.tombstone {
			out = append(out, v)
		}
	}
	return out
}

func (r *Registry[T]) check(i int) {
	if i < 0 || i >= len(r.items) {
		panic(fmt.Sprintf("registry: index %d out of range [0,%d)", i, len(r.items)))
	}
}
