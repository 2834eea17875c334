package vproxy

import (
	"errors"
	"unsafe"
)

var (
	// ErrInstalled means the proxy is already bound to a target table.
	ErrInstalled = errors.New("proxy already installed")
	// ErrNotInstalled means the operation needs an installed proxy.
	ErrNotInstalled = errors.New("proxy not installed")
	// ErrBadTable means an instance's dispatch-table pointer is missing or
	// does not look like a table of code pointers.
	ErrBadTable = errors.New("no usable dispatch table")
	// ErrNotFound means a method could not be resolved to an address or slot.
	ErrNotFound = errors.New("method not found")
	// ErrHooked means the slot or address is already redirected.
	ErrHooked = errors.New("already hooked")
	// ErrNotHooked means there is no redirection to undo.
	ErrNotHooked = errors.New("not hooked")
)

// Proxy binds one target type's dispatch table to one substitute type's
// table and tracks every redirection made between them. The zero value is
// not usable; call [New].
//
// A Proxy owns all of its state explicitly: nothing is process-global, so
// several proxies can exist side by side as long as they bind different
// target types. All methods must be externally serialized; the live table
// they mutate is shared by every instance of the target type.
type Proxy struct {
	enc    Encoding
	guard  Guard
	engine Engine

	target     []uintptr // live view, writes go through to the table
	snapshot   []uintptr
	substitute []uintptr

	targetCache     map[uintptr]Slot
	substituteCache map[uintptr]Slot

	detours map[uintptr]Detour

	resolveMisses int
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithEncoding selects the bound-method reference encoding. The default is
// the platform's native toolchain convention.
func WithEncoding(enc Encoding) Option {
	return func(p *Proxy) { p.enc = enc }
}

// WithGuard substitutes the memory protection guard.
func WithGuard(g Guard) Option {
	return func(p *Proxy) { p.guard = g }
}

// WithEngine substitutes the detour engine used for non-slot redirections.
func WithEngine(e Engine) Option {
	return func(p *Proxy) { p.engine = e }
}

// New returns an empty Proxy. It intercepts nothing until [Proxy.Install].
func New(opts ...Option) *Proxy {
	p := &Proxy{
		enc:     DefaultEncoding(),
		guard:   DefaultGuard(),
		detours: make(map[uintptr]Detour),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.engine == nil {
		p.engine = DefaultEngine(p.guard)
	}
	return p
}

// Install binds the proxy to target's dispatch table and records the table
// of the substitute definition. Both pointers must point at an object whose
// first machine word is its dispatch-table pointer.
//
// The target table is walked from slot 0 until the first empty slot and
// every entry is snapshotted; the snapshot is what [Proxy.Uninstall] and
// original-call dispatch restore and consult. The substitute table is walked
// for its length only, it is never mutated.
//
// Install fails without side effects if the proxy is already installed or if
// either table is unusable. A first slot that does not point into executable
// memory fails the bind: whatever the word points at, it is not a table of
// code pointers.
func (p *Proxy) Install(target, substitute unsafe.Pointer) error {
	if p.target != nil {
		return ErrInstalled
	}

	base := tableBase(target)
	if base == nil {
		return ErrBadTable
	}
	if *base == 0 || !p.guard.IsExecutable(*base) {
		return ErrBadTable
	}

	subBase := tableBase(substitute)
	if subBase == nil {
		return ErrBadTable
	}

	p.target = liveTable(base)
	p.snapshot = make([]uintptr, len(p.target))
	copy(p.snapshot, p.target)

	p.substitute = liveTable(subBase)

	p.targetCache = make(map[uintptr]Slot)
	p.substituteCache = make(map[uintptr]Slot)

	return nil
}

// Installed reports whether the proxy is currently bound to a target table.
func (p *Proxy) Installed() bool {
	return p.target != nil
}

// Uninstall restores every slot that still differs from its snapshot and
// releases the binding. Restoration is unconditional: it does not consult
// the redirection registry, so active slot redirections are implicitly
// undone. Detour records survive; they are independent of the binding and
// are removed individually with [Proxy.Unhook].
//
// The restore runs under one protection bracket covering the whole table.
// If the bracket cannot be opened the slots are left as they are; the
// binding is cleared either way and the protection error is returned.
func (p *Proxy) Uninstall() error {
	if p.target == nil {
		return ErrNotInstalled
	}

	err := p.guard.Protect(slotAddr(p.target, 0), len(p.target)*ptrSize, false)
	if err == nil {
		for i, orig := range p.snapshot {
			if p.target[i] != orig {
				p.target[i] = orig
			}
		}
		err = p.guard.Protect(slotAddr(p.target, 0), len(p.target)*ptrSize, true)
	}

	p.target = nil
	p.snapshot = nil
	p.substitute = nil
	p.targetCache = nil
	p.substituteCache = nil

	return err
}

// TargetSlot resolves m against the target's dispatch table. The result has
// Index -1 when m is not dispatched through the table.
func (p *Proxy) TargetSlot(m Method) Slot {
	if p.target == nil || m.IsZero() {
		return noSlot
	}
	return p.resolveCached(p.targetCache, p.target, m)
}

// SubstituteSlot resolves m against the substitute's dispatch table.
func (p *Proxy) SubstituteSlot(m Method) Slot {
	if p.substitute == nil || m.IsZero() {
		return noSlot
	}
	return p.resolveCached(p.substituteCache, p.substitute, m)
}
