package vproxy

import "golang.org/x/sys/windows"

const (
	protArenaRX  = windows.PAGE_EXECUTE_READ
	protArenaRWX = windows.PAGE_EXECUTE_READWRITE

	// The arena starts mutable; the first EndMutate drops the write bit.
	protArenaInit = protArenaRWX
)
