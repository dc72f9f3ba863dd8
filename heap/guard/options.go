package guard

import (
	"fmt"
	"os"

	"github.com/joshuapare/memdebug/internal/logger"
)

// NumClasses is the number of chunk size classes.
const NumClasses = 4

const (
	// DefaultPaddingSize is the width of the padding on each side of a usable span.
	DefaultPaddingSize = 256

	// DefaultPaddingByte is the sentinel written into every padding byte.
	DefaultPaddingByte = 0x55
)

// Runtime debug flag for allocation logging - controlled by MEMDEBUG_LOG_ALLOC env var.
var logAlloc = os.Getenv("MEMDEBUG_LOG_ALLOC") != ""

// DefaultChunkSizes are the four chunk size classes, ascending.
var DefaultChunkSizes = [NumClasses]int{1024, 2048, 4096, 8192}

// Options configures an Allocator.
type Options struct {
	// ChunkSizes lists the chunk size of each class, strictly ascending. Each must exceed
	// twice PaddingSize.
	ChunkSizes [NumClasses]int

	PaddingSize int
	PaddingByte byte

	// UseHeap backs the arena with Go heap memory instead of an anonymous mapping.
	UseHeap bool

	// OnFatal is called with every fatal error after it is logged. The memctl driver
	// terminates the process here.
	OnFatal func(error)

	// Logger receives diagnostics. Nil uses the global logger.
	Logger *logger.Logger
}

// DefaultOptions returns the options used when New is given nil.
func DefaultOptions() Options {
	return Options{
		ChunkSizes:  DefaultChunkSizes,
		PaddingSize: DefaultPaddingSize,
		PaddingByte: DefaultPaddingByte,
	}
}

func (o *Options) validate() error {
	if o.PaddingSize <= 0 {
		return fmt.Errorf("%w: padding size %d", ErrInvalidSize, o.PaddingSize)
	}
	prev := 0
	for i, size := range o.ChunkSizes {
		if size <= 2*o.PaddingSize {
			return fmt.Errorf("%w: chunk class %d size %d leaves no room inside %d bytes of padding",
				ErrInvalidSize, i, size, 2*o.PaddingSize)
		}
		if size <= prev {
			return fmt.Errorf("%w: chunk sizes must be strictly ascending", ErrInvalidSize)
		}
		prev = size
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
