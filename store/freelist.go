package store

import (
	"slices"

	"github.com/tsawler/pdfstore/core"
)

// AddFreeObject queues ref for reuse by the next CreateObject. The caller
// guarantees ref is not live. References already queued are ignored.
func (s *Store) AddFreeObject(ref core.Reference) {
	if _, ok := s.freeSet[ref]; ok {
		return
	}
	s.freeSet[ref] = struct{}{}
	s.freeNums[ref.Number]++
	s.freeList = append(s.freeList, ref)
}

// FreeObjects returns the queued free references, oldest first.
func (s *Store) FreeObjects() []core.Reference {
	return slices.Clone(s.freeList)
}

// nextFreeReference pops the oldest queued reference whose number is not in
// use. When the queue runs dry it synthesizes {ObjectCount()+1, 0}, moving
// past numbers that are live or still queued.
func (s *Store) nextFreeReference() core.Reference {
	for len(s.freeList) > 0 {
		ref := s.popFree()
		if s.numbers[ref.Number] == 0 {
			return ref
		}
	}
	n := uint32(s.objectCount + 1)
	for s.numbers[n] > 0 || s.freeNums[n] > 0 {
		n++
	}
	return core.Ref(n, 0)
}

func (s *Store) popFree() core.Reference {
	ref := s.freeList[0]
	s.freeList = s.freeList[1:]
	delete(s.freeSet, ref)
	if s.freeNums[ref.Number]--; s.freeNums[ref.Number] <= 0 {
		delete(s.freeNums, ref.Number)
	}
	return ref
}

func (s *Store) clearFreeList() {
	s.freeList = nil
	s.freeSet = make(map[core.Reference]struct{})
	s.freeNums = make(map[uint32]int)
}
