package vproxy

import (
	"encoding/binary"
	"runtime"
	"unsafe"
)

// Encoding decodes the toolchain-specific value a bound-method reference
// carries. Two encodings are supported:
//
//   - [ThunkEncoding]: the reference's first word is itself a callable
//     address. Non-optimized builds route it through a forwarding thunk (a
//     relative jump at the recorded address), which extraction follows. For
//     virtual methods the code at the address loads the object's table
//     pointer and jumps through a fixed slot, which slot decoding
//     recognizes.
//   - [OffsetEncoding]: the reference's first word is the entry address for
//     non-virtual methods, and 1 + slot*ptrSize for virtual ones (the low
//     bit is a tag).
//
// Implementations are strategies: a new toolchain variant is an additional
// Encoding, not a change to an existing one.
type Encoding interface {
	// Extract returns the raw entry-point address recorded for m, or 0 if
	// none can be determined. It never faults on a zero Method.
	Extract(m Method) uintptr

	// DecodeSlot attempts the encoding-specific shortcut from an extracted
	// address to a table slot index, without consulting a table. The result
	// is a candidate only; callers must bounds-check it and fall back to
	// scanning the live table.
	DecodeSlot(addr uintptr) (int, bool)
}

// ThunkEncoding handles toolchains that record a callable address and emit
// forwarding thunks.
var ThunkEncoding Encoding = thunkEncoding{}

// OffsetEncoding handles toolchains that tag virtual methods with a table
// offset instead of an address.
var OffsetEncoding Encoding = offsetEncoding{}

// DefaultEncoding returns the encoding conventionally used by native
// toolchains on the current platform.
func DefaultEncoding() Encoding {
	if runtime.GOOS == "windows" {
		return ThunkEncoding
	}
	return OffsetEncoding
}

const (
	opJmpRel32     = 0xE9
	jmpRel32Len    = 5
	opJmpIndirect  = 0xFF
	maxPatternRead = 16
)

type thunkEncoding struct{}

func (thunkEncoding) Extract(m Method) uintptr {
	if m.IsZero() {
		return 0
	}
	if m.kind == methodFunc {
		// Raw addresses are taken at face value.
		return m.word
	}
	return followThunk(m.word)
}

// followThunk resolves a compiler-generated forwarding thunk: a relative
// 32-bit jump at the recorded address. Only a single level is followed.
func followThunk(addr uintptr) uintptr {
	code := unsafe.Slice((*byte)(unsafe.Pointer(addr)), jmpRel32Len)
	if code[0] != opJmpRel32 {
		return addr
	}
	rel := int32(binary.LittleEndian.Uint32(code[1:]))
	return addr + jmpRel32Len + uintptr(rel)
}

func (thunkEncoding) DecodeSlot(addr uintptr) (int, bool) {
	if addr == 0 {
		return 0, false
	}
	code := unsafe.Slice((*byte)(unsafe.Pointer(addr)), maxPatternRead)
	return decodeIndirectSlot(code)
}

type offsetEncoding struct{}

func (offsetEncoding) Extract(m Method) uintptr {
	if m.IsZero() {
		return 0
	}
	return m.word
}

func (offsetEncoding) DecodeSlot(addr uintptr) (int, bool) {
	// Real entry addresses are aligned; only tagged offsets have the low
	// bit set.
	if addr&1 == 0 {
		return 0, false
	}
	return int((addr - 1) / uintptr(ptrSize)), true
}
