package vproxy

import "os"

// Guard controls the write protection of the memory being patched. Every
// table mutation is bracketed by a Protect(..., false) / Protect(..., true)
// pair, and Install uses IsExecutable as a sanity check that the first table
// slot really points at code.
//
// The default guard ([DefaultGuard]) talks to the operating system. Tests
// and callers whose tables live in ordinary writable memory can substitute
// [NopGuard].
type Guard interface {
	// Protect toggles the pages covering [addr, addr+length) between
	// writable and execute-protected.
	Protect(addr uintptr, length int, exec bool) error

	// IsExecutable reports whether addr lies in mapped executable memory.
	IsExecutable(addr uintptr) bool
}

// DefaultGuard returns the operating-system page guard.
func DefaultGuard() Guard {
	return pageGuard{}
}

type pageGuard struct{}

func (pageGuard) Protect(addr uintptr, length int, exec bool) error {
	return protectRange(addr, length, exec)
}

func (pageGuard) IsExecutable(addr uintptr) bool {
	return isExecutable(addr)
}

// NopGuard performs no protection changes and treats every non-zero address
// as executable. Use it when the dispatch table lives in memory that is
// already writable.
type NopGuard struct{}

func (NopGuard) Protect(addr uintptr, length int, exec bool) error { return nil }

func (NopGuard) IsExecutable(addr uintptr) bool { return addr != 0 }

// pageBounds rounds [addr, addr+length) out to whole pages.
//
// Example: addr=4196 with pageSize=4096 becomes start=4096, and the size
// grows by the 100 bytes between them.
func pageBounds(addr uintptr, length int) (uintptr, int) {
	pageSize := os.Getpagesize()

	start := addr &^ (uintptr(pageSize) - 1)
	total := int(addr-start) + length
	size := (total + pageSize - 1) &^ (pageSize - 1)

	return start, size
}
