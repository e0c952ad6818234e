package store

import (
	"github.com/tsawler/pdfstore/core"
)

type siteKind int

const (
	siteValue siteKind = iota // the holder's whole value
	siteArray
	siteDict
)

// Site is one place inside a value where a reference is written: an array
// element, a dictionary entry, or an object's entire value.
type Site struct {
	Holder *Object // object containing the site; the trailer for trailer sites

	kind  siteKind
	array core.Array
	index int
	dict  core.Dict
	key   string
}

// Reference returns the reference currently written at the site.
func (s Site) Reference() core.Reference {
	var v core.Object
	switch s.kind {
	case siteArray:
		v = s.array[s.index]
	case siteDict:
		v = s.dict[s.key]
	default:
		v = s.Holder.value
	}
	ref, _ := v.(core.Reference)
	return ref
}

// Set overwrites the site with v. Setting null on a dictionary site removes
// the entry, which PDF treats the same as a null value.
func (s Site) Set(v core.Object) {
	switch s.kind {
	case siteArray:
		s.array[s.index] = v
	case siteDict:
		if _, isNull := v.(core.Null); isNull {
			delete(s.dict, s.key)
			return
		}
		s.dict[s.key] = v
	default:
		s.Holder.SetValue(v)
	}
}

// collectSites walks holder's value and calls visit for every reference it
// contains. The walk uses an explicit stack and visits dictionary entries in
// key order, so results are deterministic for a given value. Values with more
// than maxNodes nodes, including values that contain themselves, fail with a
// *TraversalError.
func collectSites(holder *Object, maxNodes int, visit func(Site, core.Reference)) error {
	if ref, ok := holder.value.(core.Reference); ok {
		visit(Site{Holder: holder, kind: siteValue}, ref)
		return nil
	}

	stack := []core.Object{holder.value}
	nodes := 0
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nodes++
		if maxNodes > 0 && nodes > maxNodes {
			return &TraversalError{Ref: holder.ref, What: "value nodes", Limit: maxNodes}
		}

		var nested []core.Object
		switch c := v.(type) {
		case core.Array:
			for i, elem := range c {
				if ref, ok := elem.(core.Reference); ok {
					visit(Site{Holder: holder, kind: siteArray, array: c, index: i}, ref)
				} else if isContainer(elem) {
					nested = append(nested, elem)
				}
			}
		case core.Dict:
			for _, key := range c.SortedKeys() {
				elem := c[key]
				if ref, ok := elem.(core.Reference); ok {
					visit(Site{Holder: holder, kind: siteDict, dict: c, key: key}, ref)
				} else if isContainer(elem) {
					nested = append(nested, elem)
				}
			}
		case *core.Stream:
			if c.Dict != nil {
				nested = append(nested, c.Dict)
			}
		}
		// Reverse so nested containers pop in the order they were found.
		for i := len(nested) - 1; i >= 0; i-- {
			stack = append(stack, nested[i])
		}
	}
	return nil
}

func isContainer(v core.Object) bool {
	switch v.(type) {
	case core.Array, core.Dict, *core.Stream:
		return true
	}
	return false
}
