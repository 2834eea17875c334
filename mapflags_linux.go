//go:build linux && amd64

package vproxy

import "golang.org/x/sys/unix"

// Keep the arena in the low 4GB so relocated calls back into the text
// segment stay within rel32 range.
const arenaMapFlags = unix.MAP_32BIT
