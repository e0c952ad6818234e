package store

import (
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/tsawler/pdfstore/core"
)

func newTestStore(opts ...Option) *Store {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(opts...)
}

// checkInvariants verifies the bookkeeping that every operation must keep.
func checkInvariants(t *testing.T, s *Store) {
	t.Helper()

	owned := 0
	seen := make(map[core.Reference]bool)
	for i, sl := range s.slots {
		obj := sl.object()
		if sl.owned() {
			owned++
			if seen[obj.ref] {
				t.Errorf("owned reference %v appears twice", obj.ref)
			}
			seen[obj.ref] = true
			if obj.owner != s {
				t.Errorf("owned object %v has owner %p, want %p", obj.ref, obj.owner, s)
			}
		}
		if !s.unsorted && i > 0 && obj.ref.Less(s.slots[i-1].object().ref) {
			t.Errorf("store claims to be sorted but %v follows %v", obj.ref, s.slots[i-1].object().ref)
		}
	}
	if owned != s.ObjectCount() {
		t.Errorf("ObjectCount() = %d, want %d owned entries", s.ObjectCount(), owned)
	}
	for _, ref := range s.freeList {
		if s.GetObject(ref) != nil {
			t.Errorf("free reference %v is live", ref)
		}
	}
}

func refsOf(s *Store) []core.Reference {
	var refs []core.Reference
	for obj := range s.All() {
		refs = append(refs, obj.Reference())
	}
	return refs
}

// TestCreateObject tests that new objects get consecutive numbers and a /Type
func TestCreateObject(t *testing.T) {
	s := newTestStore()

	for i := 1; i <= 3; i++ {
		obj := s.CreateObject("Page")
		if want := core.Ref(uint32(i), 0); obj.Reference() != want {
			t.Errorf("object %d: got reference %v, want %v", i, obj.Reference(), want)
		}
		if obj.Store() != s {
			t.Errorf("object %d is not owned by the store", i)
		}
		d, ok := obj.Dict()
		if !ok {
			t.Fatalf("object %d: expected dictionary, got %T", i, obj.Value())
		}
		if typ, _ := d.GetName("Type"); typ != "Page" {
			t.Errorf("object %d: got /Type %q, want Page", i, typ)
		}
	}

	untyped := s.CreateObject("")
	if d, _ := untyped.Dict(); d.Has("Type") {
		t.Error("object created without type has /Type")
	}
	if s.Len() != 4 || s.ObjectCount() != 4 {
		t.Errorf("got Len %d ObjectCount %d, want 4 and 4", s.Len(), s.ObjectCount())
	}
	checkInvariants(t, s)
}

// TestCreateObjectUnique tests that allocation never repeats a live reference
func TestCreateObjectUnique(t *testing.T) {
	s := newTestStore()
	s.PushBack(NewObject(core.Ref(2, 0), core.Int(0)))
	s.PushBack(NewObject(core.Ref(3, 0), core.Int(0)))

	seen := make(map[core.Reference]bool)
	for obj := range s.All() {
		seen[obj.Reference()] = true
	}
	for i := 0; i < 50; i++ {
		obj := s.CreateObjectWithValue(core.Int(i))
		if seen[obj.Reference()] {
			t.Fatalf("allocation %d returned live reference %v", i, obj.Reference())
		}
		seen[obj.Reference()] = true
	}
	checkInvariants(t, s)
}

// TestCreateObjectKeepsOrder tests that created objects are inserted in order
func TestCreateObjectKeepsOrder(t *testing.T) {
	s := newTestStore()
	s.PushBack(NewObject(core.Ref(1, 0), core.Null{}))
	s.PushBack(NewObject(core.Ref(5, 0), core.Null{}))
	s.AddFreeObject(core.Ref(3, 0))

	obj := s.CreateObject("")
	if obj.Reference() != core.Ref(3, 0) {
		t.Fatalf("got %v, want 3 0 R", obj.Reference())
	}
	want := []core.Reference{core.Ref(1, 0), core.Ref(3, 0), core.Ref(5, 0)}
	if got := refsOf(s); !slices.Equal(got, want) {
		t.Errorf("got order %v, want %v", got, want)
	}
	checkInvariants(t, s)
}

// TestGetObject tests lookup in sorted and unsorted stores
func TestGetObject(t *testing.T) {
	s := newTestStore()
	for _, n := range []uint32{4, 1, 9, 2} {
		s.PushBack(NewObject(core.Ref(n, 0), core.Int(n)))
	}

	check := func(name string) {
		t.Run(name, func(t *testing.T) {
			for _, n := range []uint32{1, 2, 4, 9} {
				obj := s.GetObject(core.Ref(n, 0))
				if obj == nil {
					t.Fatalf("object %d not found", n)
				}
				if obj.Value() != core.Int(n) {
					t.Errorf("object %d: got value %v", n, obj.Value())
				}
			}
			if s.GetObject(core.Ref(3, 0)) != nil {
				t.Error("found object 3, which does not exist")
			}
			if s.GetObject(core.Ref(4, 1)) != nil {
				t.Error("found 4 1 R, which differs from 4 0 R by generation")
			}
		})
	}

	check("unsorted")
	s.Sort()
	check("sorted")
	checkInvariants(t, s)
}

// TestResolve tests value resolution through the store
func TestResolve(t *testing.T) {
	s := newTestStore()
	s.PushBack(NewObject(core.Ref(7, 0), core.Name("X")))

	if v, ok := s.Resolve(core.Ref(7, 0)); !ok || v != core.Name("X") {
		t.Errorf("Resolve(7 0 R) = %v, %v", v, ok)
	}
	if _, ok := s.Resolve(core.Ref(8, 0)); ok {
		t.Error("Resolve(8 0 R) found a dangling reference")
	}
	v, err := s.ResolveReference(core.Ref(8, 0))
	if err != nil || v != nil {
		t.Errorf("ResolveReference(8 0 R) = %v, %v; want nil, nil", v, err)
	}
}

// TestRemoveObject tests removal and hand-off of ownership
func TestRemoveObject(t *testing.T) {
	s := newTestStore()
	a := s.CreateObject("")
	b := s.CreateObject("")
	c := s.CreateObject("")

	removed := s.RemoveObject(b.Reference())
	if removed != b {
		t.Fatalf("RemoveObject returned %v, want %v", removed, b)
	}
	if removed.Store() != nil {
		t.Error("removed object still reports an owner")
	}
	if removed.Value() == nil {
		t.Error("removed object lost its value")
	}
	if s.ObjectCount() != 2 {
		t.Errorf("ObjectCount() = %d, want 2", s.ObjectCount())
	}
	if got := refsOf(s); !slices.Equal(got, []core.Reference{a.Reference(), c.Reference()}) {
		t.Errorf("remaining order %v", got)
	}
	if len(s.FreeObjects()) != 0 {
		t.Error("RemoveObject queued a free reference")
	}
	if s.RemoveObject(b.Reference()) != nil {
		t.Error("second RemoveObject found the object again")
	}

	// The caller now owns it and may insert it elsewhere.
	other := newTestStore()
	other.PushBack(removed)
	if removed.Store() != other {
		t.Error("removed object was not adopted by the second store")
	}
	checkInvariants(t, s)
	checkInvariants(t, other)
}

// TestFreeListReuse tests that a freed reference is handed out next
func TestFreeListReuse(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 4; i++ {
		s.CreateObject("")
	}

	r := core.Ref(2, 0)
	s.RemoveObject(r)
	s.AddFreeObject(r)
	if got := s.CreateObject("").Reference(); got != r {
		t.Errorf("got %v, want reused %v", got, r)
	}
	if len(s.FreeObjects()) != 0 {
		t.Errorf("free list not drained: %v", s.FreeObjects())
	}
	checkInvariants(t, s)
}

// TestFreeListFIFO tests that free references are reused oldest first
func TestFreeListFIFO(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 6; i++ {
		s.CreateObject("")
	}
	for _, n := range []uint32{5, 2, 4} {
		s.RemoveObject(core.Ref(n, 0))
		s.AddFreeObject(core.Ref(n, 0))
	}
	s.AddFreeObject(core.Ref(2, 0)) // duplicate, ignored

	if got := s.FreeObjects(); !slices.Equal(got, []core.Reference{core.Ref(5, 0), core.Ref(2, 0), core.Ref(4, 0)}) {
		t.Fatalf("FreeObjects() = %v", got)
	}

	var got []uint32
	for i := 0; i < 4; i++ {
		got = append(got, s.CreateObject("").Reference().Number)
	}
	if want := []uint32{5, 2, 4, 7}; !slices.Equal(got, want) {
		t.Errorf("allocation order %v, want %v", got, want)
	}
	checkInvariants(t, s)
}

// TestFreeListSkipsLive tests that a queued number that became live is skipped
func TestFreeListSkipsLive(t *testing.T) {
	s := newTestStore()
	s.AddFreeObject(core.Ref(1, 0))
	s.PushBack(NewObject(core.Ref(1, 0), core.Null{}))

	if got := s.CreateObject("").Reference(); got != core.Ref(2, 0) {
		t.Errorf("got %v, want 2 0 R", got)
	}
	checkInvariants(t, s)
}

// TestSynthesizeSkipsQueued tests that a synthesized number never collides with the free list
func TestSynthesizeSkipsQueued(t *testing.T) {
	s := newTestStore()
	s.CreateObject("")
	s.CreateObject("")
	// Object 3 is free but not yet reused; numbering must not hand it out twice.
	s.AddFreeObject(core.Ref(3, 0))

	first := s.CreateObject("").Reference()
	second := s.CreateObject("").Reference()
	if first != core.Ref(3, 0) {
		t.Errorf("first = %v, want 3 0 R", first)
	}
	if second != core.Ref(4, 0) {
		t.Errorf("second = %v, want 4 0 R", second)
	}
	checkInvariants(t, s)
}

// TestPushBackBorrowed tests that borrowed entries are visible but not counted
func TestPushBackBorrowed(t *testing.T) {
	owner := newTestStore()
	shared := NewObject(core.Ref(2, 0), core.Dict{"Type": core.Name("Font")})
	owner.PushBack(shared)

	s := newTestStore()
	s.CreateObject("")
	s.PushBackBorrowed(shared)

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if s.ObjectCount() != 1 {
		t.Errorf("ObjectCount() = %d, want 1", s.ObjectCount())
	}
	if shared.Store() != owner {
		t.Error("borrowing changed the object's owner")
	}
	if s.IsOwned(shared.Reference()) {
		t.Error("borrowed reference reported as owned")
	}
	// Number 2 is taken by the borrowed object, so allocation moves on.
	if got := s.CreateObject("").Reference(); got != core.Ref(3, 0) {
		t.Errorf("got %v, want 3 0 R", got)
	}

	if removed := s.RemoveObject(shared.Reference()); removed == nil {
		t.Fatal("borrowed object not found")
	}
	if s.ObjectCount() != 2 {
		t.Errorf("removing a borrowed entry changed ObjectCount to %d", s.ObjectCount())
	}
	checkInvariants(t, s)
}

// TestPushBackPanics tests the ownership preconditions
func TestPushBackPanics(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *Store) *Object
	}{
		{"nil", func(s *Store) *Object { return nil }},
		{"collision", func(s *Store) *Object {
			s.PushBack(NewObject(core.Ref(1, 0), core.Null{}))
			return NewObject(core.Ref(1, 0), core.Null{})
		}},
		{"owned elsewhere", func(s *Store) *Object {
			return newTestStore().CreateObject("")
		}},
		{"owned here", func(s *Store) *Object {
			return s.CreateObject("")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			obj := tt.setup(s)
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			s.PushBack(obj)
		})
	}
}

// TestSort tests that Sort restores reference order stably
func TestSort(t *testing.T) {
	s := newTestStore()
	for _, r := range []core.Reference{core.Ref(3, 0), core.Ref(1, 2), core.Ref(1, 0), core.Ref(2, 0)} {
		s.PushBack(NewObject(r, core.Null{}))
	}
	borrowed := NewObject(core.Ref(2, 0), core.Int(1))
	s.PushBackBorrowed(borrowed)

	s.Sort()
	want := []core.Reference{core.Ref(1, 0), core.Ref(1, 2), core.Ref(2, 0), core.Ref(2, 0), core.Ref(3, 0)}
	if got := refsOf(s); !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if s.At(3) != borrowed {
		t.Error("equal references did not keep their insertion order")
	}
	checkInvariants(t, s)
}

// TestClose tests teardown with and without auto-delete
func TestClose(t *testing.T) {
	for _, autoDelete := range []bool{false, true} {
		s := newTestStore(WithAutoDelete(autoDelete))
		obj := s.CreateObjectWithValue(core.Int(1))
		borrowed := NewObject(core.Ref(9, 0), core.Int(9))
		s.PushBackBorrowed(borrowed)

		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if s.Len() != 0 || s.ObjectCount() != 0 {
			t.Errorf("autoDelete=%v: store not empty after Close", autoDelete)
		}
		if obj.Store() != nil {
			t.Errorf("autoDelete=%v: owned object still attached", autoDelete)
		}
		if released := obj.Value() == nil; released != autoDelete {
			t.Errorf("autoDelete=%v: owned object released = %v", autoDelete, released)
		}
		if borrowed.Value() != core.Int(9) {
			t.Errorf("autoDelete=%v: borrowed object was touched", autoDelete)
		}
	}
}

// TestAllStopsEarly tests that the iterator honors a break
func TestAllStopsEarly(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 5; i++ {
		s.CreateObject("")
	}
	n := 0
	for range s.All() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d times, want 2", n)
	}
	if len(s.Objects()) != 5 {
		t.Errorf("Objects() has %d entries, want 5", len(s.Objects()))
	}
}
