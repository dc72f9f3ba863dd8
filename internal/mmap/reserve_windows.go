//go:build windows

package mmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func osReserve(size int) ([]byte, func() error, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, nil, err
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	release := func() error {
		return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
	}
	return data, release, nil
}
