package vproxy

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pboyd/malloc"
)

// trampArena hands out executable memory for trampolines. The backing pages
// stay execute-protected except inside a BeginMutate/EndMutate bracket.
var trampArena = &codeArena{}

type codeArena struct {
	*malloc.Arena
	protect  func(int) error
	mu       sync.Mutex
	initOnce sync.Once
	mutable  bool
}

func (a *codeArena) init(startSize int) error {
	var err error
	a.initOnce.Do(func() {
		be := malloc.MmapBackend(malloc.MmapProt(protArenaInit), malloc.MmapFlags(arenaMapFlags))
		if protBE, ok := be.(malloc.ProtectedArenaBackend); ok {
			a.protect = protBE.Protect
		} else {
			a.protect = func(int) error {
				return nil
			}
		}

		a.Arena = malloc.NewArena(uint64(startSize), malloc.Backend(be))
		if a.Arena == nil {
			err = errors.New("unable to initialize arena")
			return
		}
		a.mutable = true
	})
	return err
}

func (a *codeArena) BeginMutate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// BeginMutate can be called before the initial allocation.
	if a.protect == nil || a.mutable {
		return nil
	}

	err := a.protect(protArenaRWX)
	if err == nil {
		a.mutable = true
	}
	return err
}

func (a *codeArena) EndMutate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.mutable {
		return nil
	}

	err := a.protect(protArenaRX)
	if err == nil {
		a.mutable = false
	}
	return err
}

func (a *codeArena) Allocate(size int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.init(size); err != nil {
		return nil, fmt.Errorf("error initializing arena: %w", err)
	}

	if !a.mutable {
		panic("Allocate called in immutable state")
	}

	return malloc.MallocSlice[byte](a.Arena, size)
}

func (a *codeArena) Free(buf []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.mutable {
		panic("Free called in immutable state")
	}

	malloc.FreeSlice(a.Arena, buf)
}
