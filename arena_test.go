package vproxy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaMutateBracket(t *testing.T) {
	var calls int
	a := &codeArena{protect: func(int) error { calls++; return nil }}

	require.NoError(t, a.BeginMutate())
	assert.True(t, a.mutable)
	require.NoError(t, a.BeginMutate())
	assert.Equal(t, 1, calls, "a mutable arena needs no second toggle")

	require.NoError(t, a.EndMutate())
	assert.False(t, a.mutable)
	require.NoError(t, a.EndMutate())
	assert.Equal(t, 2, calls)
}

func TestArenaMutateFailureStaysProtected(t *testing.T) {
	a := &codeArena{protect: func(int) error { return errors.New("mprotect refused") }}

	assert.Error(t, a.BeginMutate())
	assert.False(t, a.mutable, "a failed toggle must not mark the arena writable")
}
