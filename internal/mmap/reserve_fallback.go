//go:build !unix && !windows

package mmap

// osReserve falls back to the Go heap when anonymous mappings are not available.
func osReserve(size int) ([]byte, func() error, error) {
	return make([]byte, size), func() error { return nil }, nil
}
