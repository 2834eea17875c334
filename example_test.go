package vproxy_test

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/pboyd/vproxy"
)

// codec mimics an object from a compiled component: its first word points at
// a table of code pointers.
type codec struct {
	vt *uintptr
}

//go:noinline
func codecEncode(c *codec, v int) int {
	return v * 2
}

//go:noinline
func tracingEncode(c *codec, v int) int {
	return v*2 + 1
}

func entry(fn any) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

func ExampleProxy() {
	target := []uintptr{entry(codecEncode), 0}
	substitute := []uintptr{entry(tracingEncode), 0}
	c := &codec{vt: &target[0]}
	s := &codec{vt: &substitute[0]}

	p := vproxy.New(
		vproxy.WithEncoding(vproxy.OffsetEncoding),
		vproxy.WithGuard(vproxy.NopGuard{}), // the table above is ordinary writable memory
	)
	if err := p.Install(unsafe.Pointer(c), unsafe.Pointer(s)); err != nil {
		panic(err)
	}
	defer p.Uninstall()

	// Slot 0 in the offset-embedding encoding.
	encode := vproxy.BoundMethod(1)
	if err := p.Hook(encode, vproxy.BoundMethod(1)); err != nil {
		panic(err)
	}

	// Dispatch through the table reaches the substitute now.
	dispatch, _ := vproxy.Original[func(*codec, int) int](p, vproxy.FuncAddr(target[0]))
	fmt.Println("dispatched:", dispatch(c, 21))

	// The original implementation is still reachable behind the hook.
	fmt.Println("hooked:", p.IsHooked(encode))
	out := p.Call(encode, (func(*codec, int) int)(nil), c, 21)
	fmt.Println("original:", out[0])

	p.Unhook(encode)
	fmt.Println("hooked:", p.IsHooked(encode))

	// Output:
	// dispatched: 43
	// hooked: true
	// original: 42
	// hooked: false
}
