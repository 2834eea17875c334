package vproxy

import "unsafe"

// maxTableSlots caps dispatch-table walks so a missing terminator can't send
// the walk into unmapped memory forever.
const maxTableSlots = 4096

// tableBase reads an object's dispatch-table pointer from its first machine
// word.
func tableBase(instance unsafe.Pointer) *uintptr {
	if instance == nil {
		return nil
	}
	return *(**uintptr)(instance)
}

// tableLen walks a dispatch table from slot 0 and returns the number of
// occupied slots, stopping at the first nil entry or at maxTableSlots. The
// discovered length is used for every later bounds check.
func tableLen(base *uintptr) int {
	n := 0
	for n < maxTableSlots {
		slot := (*uintptr)(unsafe.Pointer(uintptr(unsafe.Pointer(base)) + uintptr(n*ptrSize)))
		if *slot == 0 {
			break
		}
		n++
	}
	return n
}

// liveTable returns a slice view over the occupied portion of a live
// dispatch table. Writes through the slice mutate the table in place.
func liveTable(base *uintptr) []uintptr {
	return unsafe.Slice(base, tableLen(base))
}

func slotAddr(table []uintptr, i int) uintptr {
	return uintptr(unsafe.Pointer(&table[i]))
}
