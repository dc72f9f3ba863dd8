package gc

import "errors"

var (
	// ErrOutOfMemory indicates that no free region is large enough for the request.
	ErrOutOfMemory = errors.New("gc: out of memory")

	// ErrInvalidSize indicates a negative allocation size or a bad arena size.
	ErrInvalidSize = errors.New("gc: invalid size")

	// ErrClosed indicates use of a heap after Close.
	ErrClosed = errors.New("gc: heap closed")
)
