package vproxy

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unsafe"

	"golang.org/x/arch/x86/x86asm"
)

const (
	opcodeCALLabs = 0xff // CALL abs32
	opcodeCALLrel = 0xe8 // CALL rel32
	opcodeINT3    = 0xcc
	opcodeLEA     = 0x8d

	opcodeMOV_imm_rm = 0xc7 // MOV imm, r/m
	opcodeMOV_r_rm   = 0x8b // MOV r, r/m

	regModeDirect = 3
	registerBP    = 5

	// Slack for call thunks appended past the end of a relocated body.
	relocHeadroom = 64
)

// DefaultEngine returns the jump-splicing detour engine. Each detour clones
// the original function into an executable arena, relocating relative
// instructions as it goes, and then overwrites the entry with a 5-byte
// relative jump to the substitute. The clone is the trampoline.
func DefaultEngine(g Guard) Engine {
	return &jumpEngine{guard: g}
}

type jumpEngine struct {
	guard Guard
}

type jumpDetour struct {
	guard   Guard
	entry   uintptr
	saved   [jmpRel32Len]byte
	jump    [jmpRel32Len]byte
	tramp   []byte
	enabled bool
}

func (e *jumpEngine) Create(orig, sub uintptr) (Detour, error) {
	if orig == 0 || sub == 0 {
		return nil, errors.New("nil address")
	}

	jump, err := buildJump(orig, sub)
	if err != nil {
		return nil, err
	}

	code, err := funcBytes(orig)
	if err != nil {
		return nil, err
	}

	if err := trampArena.BeginMutate(); err != nil {
		return nil, fmt.Errorf("unprotect arena: %w", err)
	}
	defer trampArena.EndMutate()

	buf, err := trampArena.Allocate(len(code) + relocHeadroom)
	if err != nil {
		return nil, err
	}

	tramp, err := relocate(code, buf)
	if err != nil {
		trampArena.Free(buf)
		return nil, err
	}
	if unsafe.SliceData(tramp) != unsafe.SliceData(buf) {
		// The relocated body outgrew its allocation and append moved it to
		// ordinary heap memory, which is not executable.
		trampArena.Free(buf)
		return nil, errors.New("relocated function exceeded its allocation")
	}

	d := &jumpDetour{
		guard: e.guard,
		entry: orig,
		jump:  jump,
		tramp: tramp,
	}
	copy(d.saved[:], unsafe.Slice((*byte)(unsafe.Pointer(orig)), jmpRel32Len))

	return d, nil
}

func (d *jumpDetour) Enable() error {
	if d.enabled {
		return nil
	}
	if err := d.patch(d.jump); err != nil {
		return err
	}
	d.enabled = true
	return nil
}

func (d *jumpDetour) Disable() error {
	if !d.enabled {
		return nil
	}
	if err := d.patch(d.saved); err != nil {
		return err
	}
	d.enabled = false
	return nil
}

func (d *jumpDetour) Trampoline() uintptr {
	if len(d.tramp) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(d.tramp)))
}

func (d *jumpDetour) patch(with [jmpRel32Len]byte) error {
	if err := d.guard.Protect(d.entry, jmpRel32Len, false); err != nil {
		return err
	}

	code := unsafe.Slice((*byte)(unsafe.Pointer(d.entry)), jmpRel32Len)
	var prev [jmpRel32Len]byte
	copy(prev[:], code)
	copy(code, with[:])

	if err := d.guard.Protect(d.entry, jmpRel32Len, true); err != nil {
		// The page is still writable here, so an error must not leave the
		// new bytes behind: a caller that sees patch fail forgets the
		// detour, and nothing could ever unsplice it.
		copy(code, prev[:])
		return err
	}
	return nil
}

// buildJump encodes JMP rel32 from src to dest.
func buildJump(src, dest uintptr) ([jmpRel32Len]byte, error) {
	var buf [jmpRel32Len]byte

	rel := int64(dest) - int64(src+jmpRel32Len)
	if rel < math.MinInt32 || rel > math.MaxInt32 {
		return buf, errors.New("substitute is out of jump range")
	}

	buf[0] = opJmpRel32
	binary.LittleEndian.PutUint32(buf[1:], uint32(int32(rel)))
	return buf, nil
}

// relocate copies machine instructions from src into dest translating
// relative instructions as it goes. dest must be at least as large as src;
// far calls may grow the result into dest's spare capacity.
//
// The data underlying both slices is assumed to be the address the code
// executes from.
func relocate(src, dest []byte) ([]byte, error) {
	srcBase := uintptr(unsafe.Pointer(unsafe.SliceData(src)))
	destBase := uintptr(unsafe.Pointer(unsafe.SliceData(dest)))

	// Trim the INT3 padding from the end of src.
	end := len(src) - 1
	for ; end >= 0 && src[end] == opcodeINT3; end-- {
	}
	src = src[:end+1]

	dest = dest[:len(src)]

	for i := 0; i < len(src); {
		inst, err := x86asm.Decode(src[i:], 64)
		if err != nil {
			return nil, fmt.Errorf("decode error at offset %d: %w", i, err)
		}

		srcNext := srcBase + uintptr(i) + uintptr(inst.Len)
		destNext := destBase + uintptr(i) + uintptr(inst.Len)

		switch inst.Opcode >> 24 {
		case opcodeCALLrel:
			rel, ok := inst.Args[0].(x86asm.Rel)
			if !ok {
				return nil, fmt.Errorf("decode error at offset %d: unknown argument", i)
			}

			callDest := srcNext + uintptr(rel)
			newRel := int64(callDest) - int64(destNext)
			if newRel >= math.MinInt32 && newRel <= math.MaxInt32 {
				dest[i] = opcodeCALLrel
				binary.LittleEndian.PutUint32(dest[i+1:], uint32(newRel))
			} else {
				// Too far for a direct call: jump to a thunk past the end
				// of the body that makes an absolute call and jumps back.
				jumpBack := int32(i + inst.Len - len(dest))
				thunk, err := callThunk(callDest, jumpBack)
				if err != nil {
					return nil, fmt.Errorf("unable to generate call code: %w", err)
				}
				jumpTo := int32(len(dest) - (i + inst.Len))

				dest = append(dest, thunk...)

				dest[i] = opJmpRel32
				binary.LittleEndian.PutUint32(dest[i+1:], uint32(jumpTo))
			}
		case opcodeLEA, opcodeMOV_r_rm:
			mem, ok := inst.Args[1].(x86asm.Mem)
			if !ok {
				return nil, fmt.Errorf("decode error at offset %d: unknown argument", i)
			}
			if mem.Base == x86asm.RIP {
				copy(dest[i:], src[i:i+inst.Len-4])

				newDisp := (int64(srcNext) + mem.Disp) - int64(destNext)
				if newDisp < math.MinInt32 || newDisp > math.MaxInt32 {
					return nil, fmt.Errorf("decode error at offset %d: unable to translate instruction relative address", i)
				}

				binary.LittleEndian.PutUint32(dest[i+inst.Len-4:], uint32(newDisp))
			} else {
				copy(dest[i:], src[i:i+inst.Len])
			}
		default:
			copy(dest[i:], src[i:i+inst.Len])
		}

		i += inst.Len
	}

	// Pad to 16 bytes to match what the compiler does.
	padding := make([]byte, ((len(dest)+0xf)&^0xf)-len(dest))
	for i := range padding {
		padding[i] = opcodeINT3
	}
	return append(dest, padding...), nil
}

// callThunk returns the x86-64 machine code equivalent of:
//
//	MOVQ <callDest>, BP
//	CALL BP
//	JMP <jumpBack+offset>
//
// jumpBack should be relative to the beginning of the block and will be
// adjusted for its final address.
func callThunk(callDest uintptr, jumpBack int32) ([]byte, error) {
	if callDest > math.MaxUint32 {
		return nil, errors.New("64-bit call is not implemented")
	}

	buf := make([]byte, 14)
	i := 0

	// MOVQ <callDest> BP
	buf[i] = byte(x86asm.PrefixREX) | byte(x86asm.PrefixREXW)
	i++
	buf[i] = opcodeMOV_imm_rm
	i++
	buf[i] = regModeDirect<<6 | registerBP
	i++

	binary.LittleEndian.PutUint32(buf[i:], uint32(callDest))
	i += 4

	// CALL BP
	buf[i] = opcodeCALLabs
	i++
	buf[i] = regModeDirect<<6 | 2<<3 | registerBP
	i++

	// JMP <jumpBack>
	buf[i] = opJmpRel32
	i++
	binary.LittleEndian.PutUint32(buf[i:], uint32(jumpBack-int32(i)-4))

	return buf, nil
}
