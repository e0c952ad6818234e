package store

import (
	"github.com/tsawler/pdfstore/core"
)

// GCResult summarizes a garbage collection.
type GCResult struct {
	Kept     int
	Removed  []core.Reference // in store order
	Dangling int              // references to objects that do not exist
}

// CollectGarbage removes every entry that cannot be reached from trailer.
// The roots are the trailer itself, when it is an entry of the store, and
// every reference written in its value. Removed owned objects are released
// and their references queued on the free list; removed borrowed objects are
// simply dropped. A nil trailer reaches nothing, so everything is removed.
func (s *Store) CollectGarbage(trailer *Object) (*GCResult, error) {
	rc, err := s.BuildReferenceCounts()
	if err != nil {
		return nil, err
	}
	marked, dangling, err := s.mark(rc, trailer)
	if err != nil {
		return nil, err
	}

	res := &GCResult{Dangling: dangling}
	kept := s.slots[:0]
	var removed []slot
	for i, sl := range s.slots {
		if marked[i] {
			kept = append(kept, sl)
			continue
		}
		removed = append(removed, sl)
	}
	for i := len(kept); i < len(s.slots); i++ {
		s.slots[i] = nil
	}
	s.slots = kept

	for _, sl := range removed {
		s.untrack(sl)
		obj := sl.object()
		res.Removed = append(res.Removed, obj.ref)
		if sl.owned() {
			obj.owner = nil
			obj.value = nil
			s.AddFreeObject(obj.ref)
		}
	}
	res.Kept = len(s.slots)

	s.logger.Debug("garbage collected",
		"kept", res.Kept,
		"removed", len(res.Removed),
		"dangling", res.Dangling)
	return res, nil
}

// mark flags every entry reachable from trailer. It also returns the number
// of dangling references met in reachable values.
func (s *Store) mark(rc *ReferenceCounts, trailer *Object) ([]bool, int, error) {
	marked := make([]bool, len(s.slots))
	if trailer == nil {
		return marked, 0, nil
	}

	var stack []int
	push := func(i int) {
		for _, j := range rc.Sharing(i) {
			if !marked[j] {
				marked[j] = true
				stack = append(stack, j)
			}
		}
	}

	dangling := 0
	if i := s.slotOf(trailer); i >= 0 {
		push(i)
	} else {
		targets, _, rootDangling, err := rc.rootSites(trailer, s.maxNodes)
		if err != nil {
			return nil, 0, err
		}
		dangling += len(rootDangling)
		for _, t := range targets {
			push(t)
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, t := range rc.Outgoing(i) {
			push(t)
		}
	}

	for _, i := range rc.danglers {
		if marked[i] {
			dangling++
		}
	}
	return marked, dangling, nil
}

// slotOf returns the position of obj itself in the store, or -1.
func (s *Store) slotOf(obj *Object) int {
	for i, sl := range s.slots {
		if sl.object() == obj {
			return i
		}
	}
	return -1
}
