package vproxy

import "encoding/binary"

// mov eax, [ecx]
const (
	indirLoadPrefix = 0x8B
	indirLoadLen    = 2
)

// decodeIndirectSlot recognizes the virtual-dispatch stub pattern: an
// optional this-pointer load followed by an indirect jump through a register
// with a 0, 1 or 4 byte displacement. The displacement divided by the
// pointer width is the slot index.
func decodeIndirectSlot(code []byte) (int, bool) {
	if code[0] == indirLoadPrefix {
		code = code[indirLoadLen:]
	}
	if code[0] != opJmpIndirect {
		return 0, false
	}
	if (code[1]>>4)&3 != 2 {
		return 0, false
	}

	var disp uint32
	switch code[1] >> 6 {
	case 1:
		disp = uint32(code[2])
	case 2:
		disp = binary.LittleEndian.Uint32(code[2:])
	}

	return int(disp) / ptrSize, true
}
