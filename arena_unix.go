//go:build unix

package vproxy

import "golang.org/x/sys/unix"

const (
	protArenaRX  = unix.PROT_READ | unix.PROT_EXEC
	protArenaRWX = unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC

	// The arena starts mutable; the first EndMutate drops the write bit.
	protArenaInit = protArenaRWX
)
