package resolver

import (
	"errors"
	"testing"

	"github.com/tsawler/pdfstore/core"
	"github.com/tsawler/pdfstore/store"
)

// mockReader is a mock ObjectReader for testing
type mockReader struct {
	objects map[core.Reference]core.Object
	lookups int
}

func newMockReader() *mockReader {
	return &mockReader{
		objects: make(map[core.Reference]core.Object),
	}
}

func (m *mockReader) AddObject(num uint32, obj core.Object) {
	m.objects[core.Ref(num, 0)] = obj
}

func (m *mockReader) Resolve(ref core.Reference) (core.Object, bool) {
	m.lookups++
	obj, ok := m.objects[ref]
	return obj, ok
}

// TestResolveReference tests resolving a simple indirect reference
func TestResolveReference(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(5, core.Int(42))

	resolved, err := NewResolver(reader).ResolveReference(core.Ref(5, 0))
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if resolved != core.Int(42) {
		t.Errorf("expected 42, got %v", resolved)
	}
}

// TestResolveChain tests that references to references are followed
func TestResolveChain(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(1, core.Ref(2, 0))
	reader.AddObject(2, core.Ref(3, 0))
	reader.AddObject(3, core.Name("End"))

	resolved, err := NewResolver(reader).Resolve(core.Ref(1, 0))
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if resolved != core.Name("End") {
		t.Errorf("expected /End, got %v", resolved)
	}
}

// TestResolvePrimitive tests that primitives pass through unchanged
func TestResolvePrimitive(t *testing.T) {
	resolver := NewResolver(newMockReader())

	tests := []struct {
		name string
		obj  core.Object
	}{
		{"Bool", core.Bool(true)},
		{"Int", core.Int(123)},
		{"Real", core.Real(3.14)},
		{"String", core.String("hello")},
		{"Name", core.Name("Test")},
		{"Null", core.Null{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := resolver.ResolveDeep(tt.obj)
			if err != nil {
				t.Fatalf("failed to resolve: %v", err)
			}
			if !core.Equal(resolved, tt.obj) {
				t.Errorf("expected %v, got %v", tt.obj, resolved)
			}
		})
	}
}

// TestResolveShallowContainers tests that Resolve leaves containers alone
func TestResolveShallowContainers(t *testing.T) {
	reader := newMockReader()
	dict := core.Dict{"Font": core.Ref(9, 0)}
	reader.AddObject(4, dict)

	resolved, err := NewResolver(reader).Resolve(core.Ref(4, 0))
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if ref, _ := resolved.(core.Dict).GetReference("Font"); ref != core.Ref(9, 0) {
		t.Errorf("shallow resolution expanded /Font to %v", resolved)
	}
}

// TestResolveDeep tests expansion of nested dictionaries and arrays
func TestResolveDeep(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(1, core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{core.Ref(2, 0), core.Ref(3, 0)}})
	reader.AddObject(2, core.Dict{"Type": core.Name("Page"), "MediaBox": core.Ref(5, 0)})
	reader.AddObject(3, core.Dict{"Type": core.Name("Page"), "MediaBox": core.Ref(5, 0)})
	reader.AddObject(5, core.Array{core.Int(0), core.Int(0), core.Int(612), core.Int(792)})

	resolved, err := NewResolver(reader).ResolveReferenceDeep(core.Ref(1, 0))
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}

	box := core.Array{core.Int(0), core.Int(0), core.Int(612), core.Int(792)}
	want := core.Dict{
		"Type": core.Name("Pages"),
		"Kids": core.Array{
			core.Dict{"Type": core.Name("Page"), "MediaBox": box},
			core.Dict{"Type": core.Name("Page"), "MediaBox": box},
		},
	}
	if !core.Equal(resolved, want) {
		t.Errorf("got %v\nwant %v", resolved, want)
	}

	// The reader's objects are not modified.
	if _, ok := reader.objects[core.Ref(1, 0)].(core.Dict)["Kids"].(core.Array)[0].(core.Reference); !ok {
		t.Error("deep resolution modified the source object")
	}
}

// TestResolveDictAndArray tests the convenience wrappers
func TestResolveDictAndArray(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(1, core.String("one"))

	dict, err := NewResolver(reader).ResolveDict(core.Dict{"A": core.Ref(1, 0)})
	if err != nil {
		t.Fatalf("ResolveDict: %v", err)
	}
	if s, _ := dict.GetString("A"); s != "one" {
		t.Errorf("expected (one), got %v", dict)
	}

	arr, err := NewResolver(reader).ResolveArray(core.Array{core.Ref(1, 0), core.Int(2)})
	if err != nil {
		t.Fatalf("ResolveArray: %v", err)
	}
	if !core.Equal(arr, core.Array{core.String("one"), core.Int(2)}) {
		t.Errorf("got %v", arr)
	}
}

// TestResolveStream tests that stream dictionaries are expanded and data kept
func TestResolveStream(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(2, core.Int(5))
	stream := &core.Stream{Dict: core.Dict{"Length": core.Ref(2, 0)}, Data: []byte("hello")}

	resolved, err := NewResolver(reader).ResolveDeep(stream)
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	s, ok := resolved.(*core.Stream)
	if !ok {
		t.Fatalf("expected *Stream, got %T", resolved)
	}
	if n, _ := s.Dict.GetInt("Length"); n != 5 {
		t.Errorf("expected /Length 5, got %v", s.Dict.Get("Length"))
	}
	if string(s.Data) != "hello" {
		t.Errorf("stream data changed to %q", s.Data)
	}
	if _, ok := stream.Dict.Get("Length").(core.Reference); !ok {
		t.Error("original stream dictionary was modified")
	}
}

// TestCycleDetection tests that self-referencing structures fail cleanly
func TestCycleDetection(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(1, core.Dict{"Next": core.Ref(2, 0)})
	reader.AddObject(2, core.Dict{"Next": core.Ref(1, 0)})

	_, err := NewResolver(reader).ResolveReferenceDeep(core.Ref(1, 0))
	if !errors.Is(err, ErrCircularReference) {
		t.Errorf("expected ErrCircularReference, got %v", err)
	}

	// A shallow resolution of the same object is fine.
	if _, err := NewResolver(reader).ResolveReference(core.Ref(1, 0)); err != nil {
		t.Errorf("shallow resolution failed: %v", err)
	}
}

// TestSharedReferenceIsNotACycle tests that siblings may point at the same object
func TestSharedReferenceIsNotACycle(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(7, core.Name("Shared"))

	arr, err := NewResolver(reader).ResolveArray(core.Array{core.Ref(7, 0), core.Ref(7, 0)})
	if err != nil {
		t.Fatalf("ResolveArray: %v", err)
	}
	if !core.Equal(arr, core.Array{core.Name("Shared"), core.Name("Shared")}) {
		t.Errorf("got %v", arr)
	}
}

// TestMaxDepth tests the nesting limit
func TestMaxDepth(t *testing.T) {
	var v core.Object = core.Int(1)
	for i := 0; i < 20; i++ {
		v = core.Array{v}
	}

	_, err := NewResolver(newMockReader(), WithMaxDepth(10)).ResolveDeep(v)
	if !errors.Is(err, ErrMaxDepth) {
		t.Errorf("expected ErrMaxDepth, got %v", err)
	}
	if _, err := NewResolver(newMockReader(), WithMaxDepth(30)).ResolveDeep(v); err != nil {
		t.Errorf("unexpected error with a sufficient limit: %v", err)
	}
}

// TestDanglingReference tests lenient and strict handling of missing objects
func TestDanglingReference(t *testing.T) {
	reader := newMockReader()

	resolved, err := NewResolver(reader).ResolveDict(core.Dict{"Info": core.Ref(99, 0), "Size": core.Int(3)})
	if err != nil {
		t.Fatalf("lenient resolution failed: %v", err)
	}
	if resolved.Has("Info") {
		t.Error("dangling entry should resolve to null and be dropped")
	}

	_, err = NewResolver(reader, WithStrict()).ResolveReference(core.Ref(99, 0))
	if !errors.Is(err, ErrDangling) {
		t.Errorf("expected ErrDangling, got %v", err)
	}
}

// TestResolverIsReusable tests that state does not leak between calls
func TestResolverIsReusable(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(1, core.Dict{"Self": core.Ref(1, 0)})
	reader.AddObject(2, core.Int(2))
	r := NewResolver(reader)

	if _, err := r.ResolveReferenceDeep(core.Ref(1, 0)); err == nil {
		t.Fatal("expected a cycle error")
	}
	if v, err := r.ResolveReference(core.Ref(2, 0)); err != nil || v != core.Int(2) {
		t.Errorf("resolver did not recover: %v, %v", v, err)
	}
}

// TestLookup tests dictionary lookups through references
func TestLookup(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(3, core.Int(12))
	r := NewResolver(reader)
	dict := core.Dict{"Count": core.Ref(3, 0), "Gone": core.Ref(4, 0)}

	if v, ok, err := r.Lookup(dict, "Count"); err != nil || !ok || v != core.Int(12) {
		t.Errorf("Lookup(Count) = %v, %v, %v", v, ok, err)
	}
	for _, key := range []string{"Gone", "Missing"} {
		if _, ok, err := r.Lookup(dict, key); err != nil || ok {
			t.Errorf("Lookup(%s) = %v, %v", key, ok, err)
		}
	}
}

// TestResolveFromStore tests resolution against a real object store
func TestResolveFromStore(t *testing.T) {
	s := store.New()
	pages := s.CreateObject("Pages")
	catalog := s.CreateObjectWithValue(core.Dict{"Type": core.Name("Catalog"), "Pages": pages.Reference()})

	resolved, err := NewResolver(s).ResolveReferenceDeep(catalog.Reference())
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	want := core.Dict{"Type": core.Name("Catalog"), "Pages": core.Dict{"Type": core.Name("Pages")}}
	if !core.Equal(resolved, want) {
		t.Errorf("got %v, want %v", resolved, want)
	}
}
