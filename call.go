package vproxy

import (
	"reflect"
	"runtime"
	"unsafe"
)

// OriginalAddr resolves the address that currently represents "the original
// implementation" of m, regardless of any active redirection:
//
//  1. a detour's trampoline, when m's entry has been spliced
//  2. the snapshot entry of m's slot, when m is table-dispatched, so the
//     pre-redirection implementation is reached even while the live slot
//     points elsewhere
//  3. the extracted raw address, for a plain non-virtual call
//
// It returns 0 when nothing can be determined.
func (p *Proxy) OriginalAddr(m Method) uintptr {
	addr := p.enc.Extract(m)
	if addr == 0 {
		return 0
	}

	if d, ok := p.detours[addr]; ok {
		if t := d.Trampoline(); t != 0 {
			return t
		}
	}

	if m.kind == methodBound {
		if s := p.TargetSlot(m); s.in(p.target) {
			return p.snapshot[s.Index]
		}
	}

	return addr
}

// Original returns a callable of type F bound to the original implementation
// of m, resolved as described on [Proxy.OriginalAddr]. The instance receiver
// is passed explicitly as the first argument of F.
//
// It returns ErrNotFound when no address can be determined; the returned
// func is only valid when the error is nil.
func Original[F any](p *Proxy, m Method) (F, error) {
	var zero F
	if reflect.TypeFor[F]().Kind() != reflect.Func {
		return zero, ErrNotFound
	}

	addr := p.OriginalAddr(m)
	if addr == 0 {
		return zero, ErrNotFound
	}
	return funcAt[F](addr), nil
}

// Call invokes the original implementation of m with args and returns its
// results. proto supplies the signature: any function value of the right
// type, typically a nil one. The instance receiver, if any, goes first in
// args.
//
// Unresolvable methods and mismatched arguments yield zero values for every
// output instead of a fault.
func (p *Proxy) Call(m Method, proto any, args ...any) []any {
	t := reflect.TypeOf(proto)
	if t == nil || t.Kind() != reflect.Func || t.IsVariadic() {
		return nil
	}

	addr := p.OriginalAddr(m)
	if addr == 0 || len(args) != t.NumIn() {
		return zeroResults(t)
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		v := reflect.ValueOf(a)
		if !v.IsValid() || !v.Type().AssignableTo(t.In(i)) {
			return zeroResults(t)
		}
		in[i] = v
	}

	// Fabricate an addressable func value of the right type and point it at
	// the resolved code.
	entry := new(uintptr)
	*entry = addr
	fv := reflect.New(t).Elem()
	*(*unsafe.Pointer)(unsafe.Pointer(fv.Addr().Pointer())) = unsafe.Pointer(entry)

	out := fv.Call(in)
	runtime.KeepAlive(entry)

	results := make([]any, len(out))
	for i, v := range out {
		results[i] = v.Interface()
	}
	return results
}

func zeroResults(t reflect.Type) []any {
	results := make([]any, t.NumOut())
	for i := range results {
		results[i] = reflect.Zero(t.Out(i)).Interface()
	}
	return results
}

// funcAt convinces Go that a raw entry address is really a function pointer
// of type F. The heap cell holding the address doubles as the funcval; the
// returned func keeps it alive.
func funcAt[F any](addr uintptr) F {
	entry := new(uintptr)
	*entry = addr
	return *(*F)(unsafe.Pointer(&entry))
}
