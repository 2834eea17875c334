package vproxy

import (
	"bufio"
	"os"
	"strconv"
	"strings"
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

// isExecutable checks addr against the process's own mappings.
func isExecutable(addr uintptr) bool {
	if addr == 0 {
		return false
	}

	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return false
	}
	defer f.Close()

	// Each line looks like:
	//   55d5a9a9c000-55d5a9abe000 r-xp 00000000 103:02 1835090 /usr/bin/cat
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || len(fields[1]) < 3 {
			continue
		}

		bounds := strings.SplitN(fields[0], "-", 2)
		if len(bounds) != 2 {
			continue
		}
		start, err := strconv.ParseUint(bounds[0], 16, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseUint(bounds[1], 16, 64)
		if err != nil {
			continue
		}

		if uint64(addr) >= start && uint64(addr) < end {
			return fields[1][2] == 'x'
		}
	}

	return false
}
