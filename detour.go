package vproxy

import "errors"

// ErrUnsupported means the detour engine cannot operate on this
// architecture.
var ErrUnsupported = errors.New("detours not supported on this architecture")

// Engine creates detours for methods that cannot be redirected through a
// dispatch-table slot. The default engine splices a jump instruction at the
// function entry; [WithEngine] substitutes it.
type Engine interface {
	// Create prepares a detour from orig to sub without touching orig yet.
	// A failed Create must leave orig byte-identical.
	Create(orig, sub uintptr) (Detour, error)
}

// Detour is one active or prepared redirection of a function entry.
type Detour interface {
	// Enable splices the branch. Failure leaves the function unspliced.
	Enable() error

	// Disable restores the original entry bytes.
	Disable() error

	// Trampoline returns the address of a callable copy of the original
	// function body, or 0 if none exists.
	Trampoline() uintptr
}
