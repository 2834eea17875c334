//go:build !amd64 && !386

package vproxy

// No virtual-dispatch stub pattern is known for this architecture; slot
// resolution relies on scanning the live table.
func decodeIndirectSlot(code []byte) (int, bool) {
	return 0, false
}
