package guard

import (
	"errors"
	"fmt"
)

var (
	// ErrExhausted indicates that no free chunk can hold the request.
	ErrExhausted = errors.New("guard: no free chunk large enough")

	// ErrTooLarge indicates a negative request or one above the representable maximum.
	ErrTooLarge = errors.New("guard: request size not representable")

	// ErrInvalidSize indicates a bad arena size or bad options.
	ErrInvalidSize = errors.New("guard: invalid size")

	// ErrUnknownAddress indicates a free of an address no chunk hands out.
	ErrUnknownAddress = errors.New("guard: free of unknown memory segment")

	// ErrDoubleFree indicates a free of a chunk that is already free.
	ErrDoubleFree = errors.New("guard: double free")

	// ErrCorruption indicates damaged sentinel padding.
	ErrCorruption = errors.New("guard: padding corrupted")

	// ErrPoisoned is returned by every call after a fatal error.
	ErrPoisoned = errors.New("guard: allocator poisoned by fatal error")

	// ErrClosed indicates use of an allocator after Close.
	ErrClosed = errors.New("guard: allocator closed")
)

// ProtocolKind distinguishes protocol violations.
type ProtocolKind int

const (
	UnknownAddress ProtocolKind = iota + 1
	DoubleFree
)

// ProtocolError reports a free that does not match a live allocation.
type ProtocolError struct {
	Kind      ProtocolKind
	Addr      Ptr
	FreeSite  Site // caller of Free
	AllocSite Site // last allocation of the chunk, for DoubleFree
}

func (e *ProtocolError) Error() string {
	switch e.Kind {
	case DoubleFree:
		return fmt.Sprintf("guard: double free at %s of %#x, last allocated at %s",
			e.FreeSite, uintptr(e.Addr), e.AllocSite)
	default:
		return fmt.Sprintf("guard: free requested at %s for unknown memory segment %#x",
			e.FreeSite, uintptr(e.Addr))
	}
}

func (e *ProtocolError) Unwrap() error {
	if e.Kind == DoubleFree {
		return ErrDoubleFree
	}
	return ErrUnknownAddress
}

// Direction locates damaged padding relative to the usable span.
type Direction int

const (
	Before Direction = iota + 1
	After
)

func (d Direction) String() string {
	if d == Before {
		return "before"
	}
	return "after"
}

// CorruptionError reports the first damaged padding byte found at free time.
type CorruptionError struct {
	Direction Direction
	Distance  int  // bytes from the usable span edge, 1 = adjacent byte
	Used      int  // bytes the allocation asked for
	Addr      Ptr  // usable span start
	Found     byte // value of the damaged byte
	AllocSite Site
	FreeSite  Site
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("guard: illegal write %d bytes %s %d bytes of memory allocated at %s",
		e.Distance, e.Direction, e.Used, e.AllocSite)
}

func (e *CorruptionError) Unwrap() error {
	return ErrCorruption
}
