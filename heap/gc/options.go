package gc

import (
	"fmt"
	"os"

	"github.com/joshuapare/memdebug/internal/logger"
)

const (
	// HeaderSize is the size of the region header preceding every usable span.
	HeaderSize = 16

	// MinRegionSize is the smallest usable span handed out or split off.
	MinRegionSize = 16

	// Alignment is the granularity of region sizes.
	Alignment = 8

	// DefaultArenaSize is the usable size of the initial free region (1 MiB).
	DefaultArenaSize = 1 << 20

	// MaxArenaSize bounds the arena so region offsets fit in 32 bits.
	MaxArenaSize = 1<<31 - HeaderSize
)

// Runtime debug flag for allocation logging - controlled by MEMDEBUG_LOG_ALLOC env var.
var logAlloc = os.Getenv("MEMDEBUG_LOG_ALLOC") != ""

// Options configures a Heap.
type Options struct {
	// ArenaSize is the usable byte count of the single free region seeded at first use.
	// The reservation is ArenaSize + HeaderSize bytes. Must be a multiple of Alignment.
	ArenaSize int

	// Roots are consulted by Collect in addition to the heap's own RootSet.
	Roots []RootScanner

	// UseHeap backs the arena with Go heap memory instead of an anonymous mapping.
	UseHeap bool

	// Logger receives trace/debug/error records. Nil uses the global logger.
	Logger *logger.Logger
}

// DefaultOptions returns the options used when New is given nil.
func DefaultOptions() Options {
	return Options{ArenaSize: DefaultArenaSize}
}

func (o *Options) validate() error {
	if o.ArenaSize < MinRegionSize || o.ArenaSize > MaxArenaSize {
		return fmt.Errorf("%w: arena size %d outside [%d, %d]", ErrInvalidSize, o.ArenaSize, MinRegionSize, MaxArenaSize)
	}
	if o.ArenaSize%Alignment != 0 {
		return fmt.Errorf("%w: arena size %d is not a multiple of %d", ErrInvalidSize, o.ArenaSize, Alignment)
	}
	for i, r := range o.Roots {
		if r == nil {
			return fmt.Errorf("gc: root scanner %d is nil", i)
		}
	}
	return nil
}

func (o *Options) logger() *logger.Logger {
	switch {
	case o.Logger != nil:
		return o.Logger
	case logAlloc:
		return logger.Stderr(logger.LevelTrace)
	default:
		return logger.L
	}
}
