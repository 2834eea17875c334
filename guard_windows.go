package vproxy

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func protectRange(addr uintptr, length int, exec bool) error {
	start, size := pageBounds(addr, length)

	prot := uint32(windows.PAGE_EXECUTE_READWRITE)
	if exec {
		prot = windows.PAGE_EXECUTE_READ
	}

	var old uint32
	return windows.VirtualProtect(start, uintptr(size), prot, &old)
}

func isExecutable(addr uintptr) bool {
	if addr == 0 {
		return false
	}

	var info windows.MemoryBasicInformation
	err := windows.VirtualQuery(addr, &info, unsafe.Sizeof(info))
	if err != nil || info.State != windows.MEM_COMMIT {
		return false
	}

	const execMask = windows.PAGE_EXECUTE |
		windows.PAGE_EXECUTE_READ |
		windows.PAGE_EXECUTE_READWRITE |
		windows.PAGE_EXECUTE_WRITECOPY

	return info.Protect&execMask != 0
}
