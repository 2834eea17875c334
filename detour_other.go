//go:build !amd64

package vproxy

// DefaultEngine returns an engine that refuses every detour; only
// slot-level redirection works on this architecture.
func DefaultEngine(g Guard) Engine {
	return unsupportedEngine{}
}

type unsupportedEngine struct{}

func (unsupportedEngine) Create(orig, sub uintptr) (Detour, error) {
	return nil, ErrUnsupported
}
