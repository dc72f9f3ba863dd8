package buf

import "encoding/binary"

// WordSize is the width in bytes of a machine word as stored in an arena.
const WordSize = 8

// Word reads the native-endian machine word at b[off:]. Returns 0 when the word
// does not fit.
func Word(b []byte, off int) uint64 {
	w, ok := Slice(b, off, WordSize)
	if !ok {
		return 0
	}
	return binary.NativeEndian.Uint64(w)
}

// PutWord writes v as a native-endian machine word at b[off:]. Reports false when
// the word does not fit.
func PutWord(b []byte, off int, v uint64) bool {
	w, ok := Slice(b, off, WordSize)
	if !ok {
		return false
	}
	binary.NativeEndian.PutUint64(w, v)
	return true
}

// Fill sets every byte of b to v.
func Fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

// FirstMismatch returns the index of the first byte in b that differs from v, or -1.
func FirstMismatch(b []byte, v byte) int {
	for i, c := range b {
		if c != v {
			return i
		}
	}
	return -1
}
