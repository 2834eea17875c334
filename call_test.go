package vproxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginalDuringSlotHook(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.p.Hook(slotRef(1), slotRef(1)))
	require.Equal(t, addrOf(proxyRead), f.table[1], "slot must be redirected")

	fn, err := Original[func(*widget) int](f.p, slotRef(1))
	require.NoError(t, err)

	assert.Equal(t, 2, fn(f.w))
	assert.Equal(t, 1, widgetCalls.read, "the pre-redirection implementation must be reached")
	assert.Zero(t, widgetCalls.subRead, "the substitute must not run")
}

func TestOriginalRawFallback(t *testing.T) {
	f := newFixture(t)

	// Not table-dispatched, not detoured: the extracted address itself.
	m := BoundMethod(addrOf(standalone))
	assert.Equal(t, addrOf(standalone), f.p.OriginalAddr(m))

	fn, err := Original[func(int) int](f.p, m)
	require.NoError(t, err)
	assert.Equal(t, 7, fn(7))
}

//go:noinline
func trueStandalone(v int) int { return v + 1000 }

func TestOriginalPrefersTrampoline(t *testing.T) {
	f := newFixture(t)
	m := MethodOf(standalone)

	f.engine.tramps[addrOf(standalone)] = addrOf(trueStandalone)
	require.NoError(t, f.p.Hook(m, MethodOf(standaloneSub)))

	assert.Equal(t, addrOf(trueStandalone), f.p.OriginalAddr(m))

	fn, err := Original[func(int) int](f.p, m)
	require.NoError(t, err)
	assert.Equal(t, 1001, fn(1))
}

func TestOriginalUnresolved(t *testing.T) {
	f := newFixture(t)

	_, err := Original[func()](f.p, Method{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Original[int](f.p, slotRef(1))
	assert.ErrorIs(t, err, ErrNotFound, "non-func type parameter")

	assert.Zero(t, f.p.OriginalAddr(Method{}))
}

func TestCall(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.p.Hook(slotRef(1), slotRef(1)))

	out := f.p.Call(slotRef(1), (func(*widget) int)(nil), f.w)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0])
	assert.Equal(t, 1, widgetCalls.read)
	assert.Zero(t, widgetCalls.subRead)
}

func TestCallUnresolved(t *testing.T) {
	f := newFixture(t)

	out := f.p.Call(Method{}, (func(*widget) int)(nil), f.w)
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0], "unresolved calls yield zero values, not a fault")

	assert.Nil(t, f.p.Call(slotRef(1), "not a function"))
	assert.Nil(t, f.p.Call(slotRef(1), nil))
}

func TestCallArgMismatch(t *testing.T) {
	f := newFixture(t)

	out := f.p.Call(slotRef(1), (func(*widget) int)(nil))
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0])
	assert.Zero(t, widgetCalls.read)

	out = f.p.Call(slotRef(1), (func(*widget) int)(nil), "wrong type")
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0])
}

// The full lifecycle on a four-slot table: hook the method in slot 1, reach
// its original while the slot points elsewhere, then put everything back.
func TestSlotHookLifecycle(t *testing.T) {
	f := newFixture(t)
	read := slotRef(1)

	require.NoError(t, f.p.Hook(read, slotRef(1)))
	assert.Equal(t, addrOf(proxyRead), f.table[1])

	fn, err := Original[func(*widget) int](f.p, read)
	require.NoError(t, err)
	assert.Equal(t, 2, fn(f.w))
	assert.Equal(t, 1, widgetCalls.read)
	assert.Zero(t, widgetCalls.subRead)

	require.NoError(t, f.p.Unhook(read))
	assert.Equal(t, addrOf(widgetRead), f.table[1])
	assert.False(t, f.p.IsHooked(read))

	require.NoError(t, f.p.Uninstall())
	assert.Equal(t, addrOf(widgetRead), f.table[1])
}
