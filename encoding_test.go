package vproxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMethodConstructors(t *testing.T) {
	assert.True(t, Method{}.IsZero())
	assert.True(t, FuncAddr(0).IsZero())
	assert.True(t, BoundMethod(0).IsZero())
	assert.True(t, MethodOf("not a function").IsZero())
	assert.True(t, MethodOf(nil).IsZero())

	m := MethodOf(standalone)
	assert.False(t, m.IsZero())
	assert.Equal(t, addrOf(standalone), OffsetEncoding.Extract(m))
}

func TestOffsetEncodingExtract(t *testing.T) {
	assert.Zero(t, OffsetEncoding.Extract(Method{}))
	assert.Equal(t, uintptr(9), OffsetEncoding.Extract(BoundMethod(9)))
	assert.Equal(t, uintptr(42), OffsetEncoding.Extract(FuncAddr(42)))
}

func TestOffsetEncodingDecodeSlot(t *testing.T) {
	_, ok := OffsetEncoding.DecodeSlot(0)
	assert.False(t, ok)

	// Aligned values are real entry addresses, not tagged offsets.
	_, ok = OffsetEncoding.DecodeSlot(addrOf(standalone))
	assert.False(t, ok)

	for i := 0; i < 8; i++ {
		got, ok := OffsetEncoding.DecodeSlot(uintptr(1 + i*ptrSize))
		assert.True(t, ok)
		assert.Equal(t, i, got)
	}
}

func TestSlotFound(t *testing.T) {
	assert.False(t, noSlot.Found())
	assert.True(t, Slot{Addr: 1, Index: 0}.Found())

	table := []uintptr{1, 2}
	assert.False(t, Slot{Index: 2}.in(table))
	assert.True(t, Slot{Index: 1}.in(table))
	assert.False(t, noSlot.in(table))
}

func TestDefaultEncoding(t *testing.T) {
	assert.NotNil(t, DefaultEncoding())
}
