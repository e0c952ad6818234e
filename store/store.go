package store

import (
	"iter"
	"log/slog"
	"slices"

	"github.com/tsawler/pdfstore/core"
)

// Store is the indirect-object table of one document: an ordered sequence of
// owned and borrowed objects, a free list of references available for reuse,
// and the count of objects the store owns.
//
// Lookups binary-search the sequence when it is in reference order. Appends
// that break the order are allowed; call Sort before relying on fast lookup
// after a bulk load. A Store is not safe for concurrent use.
type Store struct {
	slots       []slot
	objectCount int
	freeList    []core.Reference
	autoDelete  bool
	unsorted    bool

	// ownedRefs indexes owned entries; numbers counts live entries of either
	// kind per object number so the allocator never hands out a number in use.
	ownedRefs map[core.Reference]struct{}
	numbers   map[uint32]int
	freeSet   map[core.Reference]struct{}
	freeNums  map[uint32]int

	maxNodes   int
	maxObjects int
	logger     *slog.Logger
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		maxNodes: DefaultMaxNodes,
		logger:   slog.Default(),
	}
	s.reset()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) reset() {
	s.slots = nil
	s.objectCount = 0
	s.freeList = nil
	s.unsorted = false
	s.ownedRefs = make(map[core.Reference]struct{})
	s.numbers = make(map[uint32]int)
	s.freeSet = make(map[core.Reference]struct{})
	s.freeNums = make(map[uint32]int)
}

// Len returns the number of entries, owned and borrowed.
func (s *Store) Len() int {
	return len(s.slots)
}

// ObjectCount returns the number of objects the store owns.
func (s *Store) ObjectCount() int {
	return s.objectCount
}

// At returns the entry at position i.
func (s *Store) At(i int) *Object {
	return s.slots[i].object()
}

// Objects returns the entries in store order.
func (s *Store) Objects() []*Object {
	objs := make([]*Object, len(s.slots))
	for i, sl := range s.slots {
		objs[i] = sl.object()
	}
	return objs
}

// All iterates over the entries in store order.
func (s *Store) All() iter.Seq[*Object] {
	return func(yield func(*Object) bool) {
		for _, sl := range s.slots {
			if !yield(sl.object()) {
				return
			}
		}
	}
}

// IsOwned reports whether ref names an object owned by the store.
func (s *Store) IsOwned(ref core.Reference) bool {
	_, ok := s.ownedRefs[ref]
	return ok
}

// AutoDelete reports whether Close releases owned objects.
func (s *Store) AutoDelete() bool {
	return s.autoDelete
}

// SetAutoDelete controls what Close does with owned objects. With auto-delete
// on, their values are released and they become unusable; with it off they
// are detached and stay valid for callers that still hold them.
func (s *Store) SetAutoDelete(autoDelete bool) {
	s.autoDelete = autoDelete
}

// GetObject returns the first entry whose reference equals ref, or nil.
func (s *Store) GetObject(ref core.Reference) *Object {
	if i, ok := s.find(ref); ok {
		return s.slots[i].object()
	}
	return nil
}

// Resolve returns the value of the object named by ref.
func (s *Store) Resolve(ref core.Reference) (core.Object, bool) {
	obj := s.GetObject(ref)
	if obj == nil {
		return nil, false
	}
	return obj.value, true
}

// ResolveReference implements core.ReferenceResolver so a parser can look up
// indirect stream lengths in the store.
func (s *Store) ResolveReference(ref core.Reference) (core.Object, error) {
	if v, ok := s.Resolve(ref); ok {
		return v, nil
	}
	return nil, nil
}

// RemoveObject takes the first entry whose reference equals ref out of the
// store and returns it, or nil if there is none. The order of the remaining
// entries is preserved. A removed owned object is handed back to the caller:
// it no longer counts towards ObjectCount and its reference is not added to
// the free list.
func (s *Store) RemoveObject(ref core.Reference) *Object {
	i, ok := s.find(ref)
	if !ok {
		return nil
	}
	sl := s.slots[i]
	s.slots = slices.Delete(s.slots, i, i+1)
	s.untrack(sl)
	obj := sl.object()
	if sl.owned() {
		obj.owner = nil
	}
	return obj
}

// CreateObject allocates a reference, creates an owned dictionary object
// under it and inserts it in reference order. A non-empty typ becomes the
// dictionary's /Type entry.
func (s *Store) CreateObject(typ string) *Object {
	dict := make(core.Dict)
	if typ != "" {
		dict.Set("Type", core.Name(typ))
	}
	return s.CreateObjectWithValue(dict)
}

// CreateObjectWithValue allocates a reference, creates an owned object holding
// value under it and inserts it in reference order.
func (s *Store) CreateObjectWithValue(value core.Object) *Object {
	obj := NewObject(s.nextFreeReference(), value)
	obj.owner = s
	sl := ownedSlot{obj}
	if s.unsorted {
		s.slots = append(s.slots, sl)
	} else {
		i, _ := slices.BinarySearchFunc(s.slots, obj.ref, compareSlot)
		for i < len(s.slots) && s.slots[i].object().ref == obj.ref {
			i++
		}
		s.slots = slices.Insert(s.slots, i, slot(sl))
	}
	s.track(sl)
	return obj
}

// PushBack appends obj and takes ownership of it. Inserting an object that
// another store owns, or whose reference collides with an owned entry, is a
// programming error and panics.
func (s *Store) PushBack(obj *Object) {
	if obj == nil {
		panic("store: PushBack of nil object")
	}
	if obj.owner != nil {
		panic("store: object " + obj.ref.String() + " is already owned by a store")
	}
	if s.IsOwned(obj.ref) {
		panic("store: reference " + obj.ref.String() + " is already in use")
	}
	obj.owner = s
	s.appendSlot(ownedSlot{obj})
}

// PushBackBorrowed appends obj without taking ownership. The store never
// releases or renumbers-and-frees a borrowed object, and it does not count
// towards ObjectCount.
func (s *Store) PushBackBorrowed(obj *Object) {
	if obj == nil {
		panic("store: PushBackBorrowed of nil object")
	}
	s.appendSlot(borrowedSlot{obj})
}

func (s *Store) appendSlot(sl slot) {
	if n := len(s.slots); n > 0 && sl.object().ref.Less(s.slots[n-1].object().ref) {
		s.unsorted = true
	}
	s.slots = append(s.slots, sl)
	s.track(sl)
}

// Sort orders the entries by reference. Entries with equal references keep
// their relative order.
func (s *Store) Sort() {
	slices.SortStableFunc(s.slots, func(a, b slot) int {
		return a.object().ref.Compare(b.object().ref)
	})
	s.unsorted = false
}

// Close empties the store. Owned objects are released when auto-delete is on
// and detached otherwise; borrowed objects are never touched.
func (s *Store) Close() error {
	for _, sl := range s.slots {
		if !sl.owned() {
			continue
		}
		obj := sl.object()
		obj.owner = nil
		if s.autoDelete {
			obj.value = nil
		}
	}
	s.reset()
	return nil
}

// find locates the first entry with reference ref.
func (s *Store) find(ref core.Reference) (int, bool) {
	if s.unsorted {
		i := slices.IndexFunc(s.slots, func(sl slot) bool { return sl.object().ref == ref })
		return i, i >= 0
	}
	return slices.BinarySearchFunc(s.slots, ref, compareSlot)
}

func compareSlot(sl slot, ref core.Reference) int {
	return sl.object().ref.Compare(ref)
}

// track and untrack keep the reference indexes and the owned count in step
// with the slots.
func (s *Store) track(sl slot) {
	ref := sl.object().ref
	s.numbers[ref.Number]++
	if sl.owned() {
		s.ownedRefs[ref] = struct{}{}
		s.objectCount++
	}
}

func (s *Store) untrack(sl slot) {
	ref := sl.object().ref
	if s.numbers[ref.Number]--; s.numbers[ref.Number] <= 0 {
		delete(s.numbers, ref.Number)
	}
	if sl.owned() {
		delete(s.ownedRefs, ref)
		s.objectCount--
	}
}

// reindex rebuilds the reference indexes after references were rewritten.
func (s *Store) reindex() {
	s.ownedRefs = make(map[core.Reference]struct{}, len(s.slots))
	s.numbers = make(map[uint32]int, len(s.slots))
	for _, sl := range s.slots {
		ref := sl.object().ref
		s.numbers[ref.Number]++
		if sl.owned() {
			s.ownedRefs[ref] = struct{}{}
		}
	}
}
