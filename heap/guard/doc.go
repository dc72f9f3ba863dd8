// Package guard provides a debugging allocator that detects buffer overruns, underruns,
// double frees and leaks.
//
// # Overview
//
// An Allocator reserves one arena up front and splits it into four equal quarters, one
// per chunk size class (1, 2, 4 and 8 KB by default). Every chunk carries 256 bytes of
// sentinel padding (0x55) on both sides of its usable span:
//
//	+-----------+----------------------+-----------+--------+
//	| padding   | usable (used bytes)  | padding   | unused |
//	+-----------+----------------------+-----------+--------+
//	            ^ Ptr returned by Alloc
//
// The trailing padding is written right after the used bytes, so an overrun by a single
// byte is caught. Free validates both paddings before returning the chunk.
//
// # Fatal errors
//
// Freeing an unknown address, freeing twice and damaged padding are fatal: the error is
// logged, handed to Options.OnFatal when set, and the allocator is poisoned so every
// later call fails with ErrPoisoned. Detected corruption is never silently continued
// past. Exhaustion is the only ordinary error.
//
// # Allocation sites
//
// Alloc and Free record the file and line of their caller. Corruption diagnostics and
// leak reports name the allocation site:
//
//	p, err := a.Alloc(100)
//	...
//	if err := a.Free(p); err != nil {
//	    // guard: illegal write 1 bytes after 100 bytes of memory allocated at main.go:42
//	}
//
// At shutdown ReportActive lists every chunk that was never freed.
//
// # Thread Safety
//
// Allocator instances are not thread-safe.
package guard
