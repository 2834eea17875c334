package vproxy

import (
	"errors"
	"fmt"
	"reflect"
)

type funcDiff struct {
	In  []*typePair
	Out []*typePair
}

type typePair struct {
	A reflect.Type
	B reflect.Type
}

func (d *funcDiff) Any() bool {
	for _, p := range d.In {
		if p != nil {
			return true
		}
	}
	for _, p := range d.Out {
		if p != nil {
			return true
		}
	}
	return false
}

func (d *funcDiff) Error() error {
	errs := []error{}
	for i, p := range d.In {
		if p != nil {
			errs = append(errs, fmt.Errorf("argument %d: %v != %v", i, p.A, p.B))
		}
	}
	for i, p := range d.Out {
		if p != nil {
			errs = append(errs, fmt.Errorf("output %d: %v != %v", i, p.A, p.B))
		}
	}
	return errors.Join(errs...)
}

// diffFuncs compares two function signatures position by position.
func diffFuncs(a, b reflect.Value) *funcDiff {
	at := a.Type()
	bt := b.Type()

	in := func(t reflect.Type, i int) reflect.Type {
		if i >= t.NumIn() {
			return nil
		}
		return t.In(i)
	}
	out := func(t reflect.Type, i int) reflect.Type {
		if i >= t.NumOut() {
			return nil
		}
		return t.Out(i)
	}

	diff := funcDiff{
		In:  make([]*typePair, max(at.NumIn(), bt.NumIn())),
		Out: make([]*typePair, max(at.NumOut(), bt.NumOut())),
	}

	for i := range diff.In {
		if ai, bi := in(at, i), in(bt, i); ai != bi {
			diff.In[i] = &typePair{A: ai, B: bi}
		}
	}
	for i := range diff.Out {
		if ao, bo := out(at, i), out(bt, i); ao != bo {
			diff.Out[i] = &typePair{A: ao, B: bo}
		}
	}

	return &diff
}
