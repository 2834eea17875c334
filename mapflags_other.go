//go:build !(linux && amd64)

package vproxy

// No portable equivalent of MAP_32BIT here; trust the OS to map the arena
// somewhere reachable.
const arenaMapFlags = 0
