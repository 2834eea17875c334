//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package vproxy

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

func protectRange(addr uintptr, length int, exec bool) error {
	start, size := pageBounds(addr, length)
	region := unsafe.Slice((*byte)(unsafe.Pointer(start)), size)

	prot := unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
	if exec {
		prot = unix.PROT_READ | unix.PROT_EXEC
	}
	return unix.Mprotect(region, prot)
}

// isExecutable can only probe whether the page is mapped at all: there is no
// portable way to read protection bits on these systems. An msync on an
// unmapped page fails with ENOMEM.
func isExecutable(addr uintptr) bool {
	if addr == 0 {
		return false
	}

	pageSize := os.Getpagesize()
	start := addr &^ (uintptr(pageSize) - 1)
	page := unsafe.Slice((*byte)(unsafe.Pointer(start)), pageSize)

	return unix.Msync(page, unix.MS_ASYNC) == nil
}
