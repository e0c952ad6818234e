package store

import (
	"errors"
	"slices"
	"testing"

	"github.com/tsawler/pdfstore/core"
)

// buildGraph stores objects 1, 2 and 3 where
//
//	1 = << /A 2 0 R /B [2 0 R 3 0 R 99 0 R] >>
//	2 = 3 0 R
//	3 = 42
func buildGraph(t *testing.T) *Store {
	t.Helper()
	s := newTestStore()
	s.PushBack(NewObject(core.Ref(1, 0), core.Dict{
		"A": core.Ref(2, 0),
		"B": core.Array{core.Ref(2, 0), core.Ref(3, 0), core.Ref(99, 0)},
	}))
	s.PushBack(NewObject(core.Ref(2, 0), core.Ref(3, 0)))
	s.PushBack(NewObject(core.Ref(3, 0), core.Int(42)))
	return s
}

// TestBuildReferenceCounts tests incoming and outgoing edges
func TestBuildReferenceCounts(t *testing.T) {
	s := buildGraph(t)
	rc, err := s.BuildReferenceCounts()
	if err != nil {
		t.Fatalf("BuildReferenceCounts: %v", err)
	}

	if rc.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", rc.Len())
	}
	for i, want := range []int{0, 2, 2} {
		if got := rc.Count(i); got != want {
			t.Errorf("Count(%d) = %d, want %d", i, got, want)
		}
	}
	if got := rc.Outgoing(0); !slices.Equal(got, []int{1, 1, 2}) {
		t.Errorf("Outgoing(0) = %v, want [1 1 2]", got)
	}
	if got := rc.Outgoing(1); !slices.Equal(got, []int{2}) {
		t.Errorf("Outgoing(1) = %v, want [2]", got)
	}
	if len(rc.Outgoing(2)) != 0 {
		t.Errorf("Outgoing(2) = %v, want none", rc.Outgoing(2))
	}
	if got := rc.Unreferenced(); !slices.Equal(got, []core.Reference{core.Ref(1, 0)}) {
		t.Errorf("Unreferenced() = %v", got)
	}

	dangling := rc.Dangling()
	if len(dangling) != 1 {
		t.Fatalf("got %d dangling sites, want 1", len(dangling))
	}
	if dangling[0].Reference() != core.Ref(99, 0) {
		t.Errorf("dangling site holds %v", dangling[0].Reference())
	}
	if dangling[0].Holder.Reference() != core.Ref(1, 0) {
		t.Errorf("dangling site held by %v", dangling[0].Holder.Reference())
	}

	if i, ok := rc.IndexOf(core.Ref(3, 0)); !ok || i != 2 {
		t.Errorf("IndexOf(3 0 R) = %d, %v", i, ok)
	}
	if _, ok := rc.IndexOf(core.Ref(99, 0)); ok {
		t.Error("IndexOf found a dangling reference")
	}
}

// TestSiteSet tests rewriting each kind of site in place
func TestSiteSet(t *testing.T) {
	s := buildGraph(t)
	rc, err := s.BuildReferenceCounts()
	if err != nil {
		t.Fatalf("BuildReferenceCounts: %v", err)
	}

	for _, site := range rc.Incoming(2) {
		site.Set(core.Ref(30, 0))
	}
	for _, site := range rc.Dangling() {
		site.Set(core.Null{})
	}

	want1 := core.Dict{
		"A": core.Ref(2, 0),
		"B": core.Array{core.Ref(2, 0), core.Ref(30, 0), core.Null{}},
	}
	if v := s.GetObject(core.Ref(1, 0)).Value(); !core.Equal(v, want1) {
		t.Errorf("object 1 = %v, want %v", v, want1)
	}
	if v := s.GetObject(core.Ref(2, 0)).Value(); v != core.Ref(30, 0) {
		t.Errorf("object 2 = %v, want 30 0 R", v)
	}

	// A null written to a dictionary site removes the entry.
	for _, site := range rc.Incoming(1) {
		site.Set(core.Null{})
	}
	d, _ := s.GetObject(core.Ref(1, 0)).Dict()
	if d.Has("A") {
		t.Error("dictionary entry A survived being nulled")
	}
}

// TestReferenceCountsStream tests that stream dictionaries are walked
func TestReferenceCountsStream(t *testing.T) {
	s := newTestStore()
	s.PushBack(NewObject(core.Ref(1, 0), &core.Stream{
		Dict: core.Dict{"Length": core.Ref(2, 0)},
		Data: []byte("2 0 R is not a reference in data"),
	}))
	s.PushBack(NewObject(core.Ref(2, 0), core.Int(33)))

	rc, err := s.BuildReferenceCounts()
	if err != nil {
		t.Fatalf("BuildReferenceCounts: %v", err)
	}
	if rc.Count(1) != 1 {
		t.Errorf("Count(1) = %d, want 1", rc.Count(1))
	}
}

// TestTraversalLimits tests that adversarial values end in a bounded error
func TestTraversalLimits(t *testing.T) {
	t.Run("self-containing array", func(t *testing.T) {
		loop := core.Array{core.Null{}}
		loop[0] = loop

		s := newTestStore(WithMaxNodes(100))
		s.PushBack(NewObject(core.Ref(4, 0), loop))

		_, err := s.BuildReferenceCounts()
		if !errors.Is(err, ErrTraversalLimit) {
			t.Fatalf("expected ErrTraversalLimit, got %v", err)
		}
		var te *TraversalError
		if !errors.As(err, &te) {
			t.Fatalf("expected *TraversalError, got %T", err)
		}
		if te.Ref != core.Ref(4, 0) || te.Limit != 100 {
			t.Errorf("got %+v", te)
		}
	})

	t.Run("too many objects", func(t *testing.T) {
		s := newTestStore(WithMaxObjects(2))
		for i := 0; i < 3; i++ {
			s.CreateObject("")
		}
		_, err := s.CollectGarbage(nil)
		if !errors.Is(err, ErrTraversalLimit) {
			t.Fatalf("expected ErrTraversalLimit, got %v", err)
		}
		if s.Len() != 3 {
			t.Error("failed collection modified the store")
		}
	})

	t.Run("deep nesting", func(t *testing.T) {
		var v core.Object = core.Ref(2, 0)
		for i := 0; i < 100000; i++ {
			v = core.Array{v}
		}
		s := newTestStore()
		s.PushBack(NewObject(core.Ref(1, 0), v))
		s.PushBack(NewObject(core.Ref(2, 0), core.Null{}))

		rc, err := s.BuildReferenceCounts()
		if err != nil {
			t.Fatalf("BuildReferenceCounts: %v", err)
		}
		if rc.Count(1) != 1 {
			t.Errorf("Count(1) = %d, want 1", rc.Count(1))
		}
	})
}
