// Package mmap provides the one-time bulk memory reservation used by the arena engines.
//
// Reservations are zero-filled, private, read-write and never moved. Each call returns
// the reserved bytes and a release function; release is safe to call more than once.
package mmap

import (
	"errors"
	"fmt"
)

// ErrInvalidSize is returned for non-positive reservation sizes.
var ErrInvalidSize = errors.New("mmap: reservation size must be positive")

// Reserve reserves size bytes of memory from the host environment.
func Reserve(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, ErrInvalidSize
	}
	data, release, err := osReserve(size)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap: reserve %d bytes: %w", size, err)
	}
	return data, once(release), nil
}

// ReserveHeap reserves size bytes from the Go heap. The Go collector never moves heap
// objects, so addresses inside the returned slice are stable while it is referenced.
func ReserveHeap(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, ErrInvalidSize
	}
	return make([]byte, size), func() error { return nil }, nil
}

func once(release func() error) func() error {
	done := false
	return func() error {
		if done {
			return nil
		}
		done = true
		return release()
	}
}
