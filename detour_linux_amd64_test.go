package vproxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:noinline
func detourTarget(v int) int {
	return v + 3
}

//go:noinline
func detourReplacement(v int) int {
	return v * 10
}

func TestJumpDetour(t *testing.T) {
	require.Equal(t, 6, detourTarget(3))

	eng := DefaultEngine(DefaultGuard())
	d, err := eng.Create(addrOf(detourTarget), addrOf(detourReplacement))
	require.NoError(t, err)
	t.Cleanup(func() { d.Disable() })

	require.NotZero(t, d.Trampoline())
	assert.Equal(t, 6, detourTarget(3), "Create alone must not splice")

	require.NoError(t, d.Enable())
	assert.Equal(t, 30, detourTarget(3))

	orig := funcAt[func(int) int](d.Trampoline())
	assert.Equal(t, 6, orig(3), "trampoline still runs the original body")

	require.NoError(t, d.Disable())
	assert.Equal(t, 6, detourTarget(3))
}

func TestJumpEngineRejectsUnknownAddress(t *testing.T) {
	eng := DefaultEngine(DefaultGuard())

	_, err := eng.Create(0, addrOf(detourReplacement))
	assert.Error(t, err)

	// An address outside any Go function has no recoverable length.
	buf := make([]byte, 64)
	_, err = eng.Create(bufAddr(buf), addrOf(detourReplacement))
	assert.Error(t, err)
}

//go:noinline
func liveOriginal(v int) int {
	return v - 1
}

//go:noinline
func liveSubstitute(v int) int {
	return v * -1
}

// End-to-end direct redirection through a Proxy with the real guard and
// engine.
func TestProxyDirectHookIntegration(t *testing.T) {
	p := New()
	m := MethodOf(liveOriginal)

	require.NoError(t, p.HookFuncs(liveOriginal, liveSubstitute))
	t.Cleanup(func() { p.Unhook(m) })

	assert.True(t, p.IsHooked(m))
	assert.Equal(t, -5, liveOriginal(5))

	orig, err := Original[func(int) int](p, m)
	require.NoError(t, err)
	assert.Equal(t, 4, orig(5))

	require.NoError(t, p.Unhook(m))
	assert.False(t, p.IsHooked(m))
	assert.Equal(t, 4, liveOriginal(5))
}
