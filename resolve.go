package vproxy

// resolveSlot determines whether the method with extracted address addr is
// dispatched through a fixed slot of table, and which one.
//
// The encoding-specific shortcut is tried first. When it produces nothing
// usable, because the stub pattern is absent or the candidate index is out
// of range, the live table is scanned for an exact address match. The scan is
// the ground truth: inherited and overridden methods, or methods resolved
// through an intermediate base, may not match the shortcut even though they
// occupy a slot.
func resolveSlot(enc Encoding, table []uintptr, addr uintptr) Slot {
	if len(table) == 0 || addr == 0 {
		return noSlot
	}

	if i, ok := enc.DecodeSlot(addr); ok && i >= 0 && i < len(table) {
		return Slot{Addr: table[i], Index: i}
	}

	for i := range table {
		if table[i] == addr {
			return Slot{Addr: addr, Index: i}
		}
	}

	return noSlot
}

// resolveCached is resolveSlot behind a per-table cache keyed by extracted
// address. Only successful resolutions are cached: a failure may just mean
// the entry has not been installed in the table yet, so it is recomputed on
// every call. The table layout itself is assumed stable for the life of the
// process, so cached entries are never invalidated.
func (p *Proxy) resolveCached(cache map[uintptr]Slot, table []uintptr, m Method) Slot {
	addr := p.enc.Extract(m)
	if addr == 0 {
		return noSlot
	}

	if s, ok := cache[addr]; ok {
		return s
	}
	p.resolveMisses++

	s := resolveSlot(p.enc, table, addr)
	if s.in(table) {
		cache[addr] = s
	}
	return s
}
