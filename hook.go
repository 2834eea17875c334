package vproxy

import (
	"fmt"
	"reflect"
)

// Hook redirects orig to sub.
//
// When orig is a bound method occupying a slot of the target table, the slot
// is rewritten in place with sub's entry from the substitute table: every
// instance of the target type is redirected at once. Only one redirection
// per slot can be active at a time.
//
// When orig resolves to no slot (a raw address, or a method that is not
// dispatched through the table) the detour engine splices a jump at its
// entry instead, and sub may be any function with a matching signature.
func (p *Proxy) Hook(orig, sub Method) error {
	if orig.IsZero() || sub.IsZero() {
		return ErrNotFound
	}

	if orig.kind == methodBound {
		if s := p.TargetSlot(orig); s.in(p.target) {
			return p.hookSlot(s, sub)
		}
	}

	return p.hookDirect(p.enc.Extract(orig), p.enc.Extract(sub))
}

func (p *Proxy) hookSlot(s Slot, sub Method) error {
	if p.target[s.Index] != p.snapshot[s.Index] {
		return ErrHooked
	}

	ss := p.SubstituteSlot(sub)
	if !ss.in(p.substitute) {
		return ErrNotFound
	}

	return p.writeSlot(s.Index, ss.Addr)
}

func (p *Proxy) hookDirect(orig, sub uintptr) error {
	if orig == 0 || sub == 0 {
		return ErrNotFound
	}
	if _, ok := p.detours[orig]; ok {
		return ErrHooked
	}

	d, err := p.engine.Create(orig, sub)
	if err != nil {
		return fmt.Errorf("create detour: %w", err)
	}
	if err := d.Enable(); err != nil {
		return fmt.Errorf("enable detour: %w", err)
	}

	p.detours[orig] = d
	return nil
}

// HookFuncs is a convenience around [Proxy.Hook] for detouring one Go
// function with another. The signatures must match exactly.
func (p *Proxy) HookFuncs(orig, sub any) error {
	ov := reflect.ValueOf(orig)
	if ov.Kind() != reflect.Func {
		return fmt.Errorf("not a function, kind: %v", ov.Kind())
	}
	sv := reflect.ValueOf(sub)
	if sv.Kind() != reflect.Func {
		return fmt.Errorf("not a function, kind: %v", sv.Kind())
	}
	if diff := diffFuncs(ov, sv); diff.Any() {
		return fmt.Errorf("function signatures do not match: %w", diff.Error())
	}

	return p.hookDirect(ov.Pointer(), sv.Pointer())
}

// Unhook undoes the redirection of orig: it disables and forgets a detour,
// or restores a rewritten slot from the snapshot. It fails with ErrNotHooked
// when there is nothing to undo.
func (p *Proxy) Unhook(orig Method) error {
	addr := p.enc.Extract(orig)
	if addr == 0 {
		return ErrNotHooked
	}

	if d, ok := p.detours[addr]; ok {
		if err := d.Disable(); err != nil {
			return fmt.Errorf("disable detour: %w", err)
		}
		delete(p.detours, addr)
		return nil
	}

	if orig.kind != methodBound {
		return ErrNotHooked
	}
	s := p.TargetSlot(orig)
	if !s.in(p.target) {
		return ErrNotHooked
	}
	if p.target[s.Index] == p.snapshot[s.Index] {
		return ErrNotHooked
	}

	return p.writeSlot(s.Index, p.snapshot[s.Index])
}

// IsHooked reports whether a redirection is currently active for orig,
// either as a detour or as a table slot diverging from its snapshot.
func (p *Proxy) IsHooked(orig Method) bool {
	addr := p.enc.Extract(orig)
	if addr == 0 {
		return false
	}
	if _, ok := p.detours[addr]; ok {
		return true
	}
	if orig.kind != methodBound {
		return false
	}

	s := p.TargetSlot(orig)
	return s.in(p.target) && p.target[s.Index] != p.snapshot[s.Index]
}

// writeSlot patches a single table slot under the guard's protection
// bracket. The write permission is never held open across a call boundary.
func (p *Proxy) writeSlot(i int, addr uintptr) error {
	if err := p.guard.Protect(slotAddr(p.target, i), ptrSize, false); err != nil {
		return fmt.Errorf("unprotect slot %d: %w", i, err)
	}
	p.target[i] = addr
	if err := p.guard.Protect(slotAddr(p.target, i), ptrSize, true); err != nil {
		return fmt.Errorf("reprotect slot %d: %w", i, err)
	}
	return nil
}
