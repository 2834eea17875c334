package vproxy

import (
	"reflect"
	"unsafe"
)

const ptrSize = int(unsafe.Sizeof(uintptr(0)))

type methodKind uint8

const (
	methodNone methodKind = iota
	methodFunc
	methodBound
)

// Method identifies a function to intercept. It is either a plain entry
// address ([FuncAddr]) or the first machine word of a toolchain-produced
// bound-method reference ([BoundMethod]). How the word maps to an entry
// address or a table slot depends on the [Encoding] in use.
type Method struct {
	kind methodKind
	word uintptr
}

// FuncAddr returns a Method for a raw entry address. Methods built this way
// are never resolved against a dispatch table; hooking one always goes
// through the detour engine.
func FuncAddr(addr uintptr) Method {
	if addr == 0 {
		return Method{}
	}
	return Method{kind: methodFunc, word: addr}
}

// BoundMethod returns a Method for the first machine word of a bound-method
// reference.
func BoundMethod(word uintptr) Method {
	if word == 0 {
		return Method{}
	}
	return Method{kind: methodBound, word: word}
}

// MethodOf returns a Method for a Go function or method expression. It
// returns the zero Method if fn is not a function.
func MethodOf(fn any) Method {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return Method{}
	}
	return FuncAddr(v.Pointer())
}

// IsZero reports whether m identifies nothing.
func (m Method) IsZero() bool {
	return m.kind == methodNone
}

// Slot describes where a method lives in a dispatch table: the entry address
// and the table index it is dispatched through. A method that is not invoked
// through a table has the sentinel value with Index -1 and a zero Addr.
type Slot struct {
	Addr  uintptr
	Index int
}

var noSlot = Slot{Index: -1}

// Found reports whether the slot refers to a real table index.
func (s Slot) Found() bool {
	return s.Index >= 0
}

func (s Slot) in(table []uintptr) bool {
	return s.Index >= 0 && s.Index < len(table)
}
