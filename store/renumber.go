package store

import (
	"github.com/tsawler/pdfstore/core"
)

// RenumberResult summarizes a renumbering.
type RenumberResult struct {
	Mapping map[core.Reference]core.Reference // old reference to new
	Removed []core.Reference                  // entries garbage collected first
	Nulled  int                               // dangling references replaced by null
}

// RenumberObjects compacts the store to the dense numbering 1..N with
// generation 0 and rewrites every reference to match.
//
// Objects are numbered breadth-first from trailer in the order references are
// first found: the trailer itself when it is stored, then the references in
// its value, then theirs, with dictionary entries taken in key order. Unless
// KeepUnreachable is given, the store is garbage collected first so that N is
// exactly the number of reachable objects. With KeepUnreachable the remaining
// objects keep their relative order and follow the reachable ones.
//
// References that resolve to nothing are replaced by null, in the store and
// in the trailer. Afterwards the store is sorted and the free list is empty.
// Running it twice in a row yields the identity mapping the second time.
func (s *Store) RenumberObjects(trailer *Object, opts ...RenumberOption) (*RenumberResult, error) {
	var cfg renumberConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	res := &RenumberResult{}
	if !cfg.keepUnreachable {
		gc, err := s.CollectGarbage(trailer)
		if err != nil {
			return nil, err
		}
		res.Removed = gc.Removed
	}

	rc, err := s.BuildReferenceCounts()
	if err != nil {
		return nil, err
	}

	// The trailer's own sites are rewritten along with the store's when the
	// trailer is not an entry itself.
	var (
		rootTargets  []int
		rootSites    [][]Site
		rootDangling []Site
	)
	trailerPos := -1
	if trailer != nil {
		trailerPos = s.slotOf(trailer)
		if trailerPos < 0 {
			rootTargets, rootSites, rootDangling, err = rc.rootSites(trailer, s.maxNodes)
			if err != nil {
				return nil, err
			}
		}
	}

	order := make([]int, 0, len(s.slots))
	visited := make([]bool, len(s.slots))
	visit := func(i int) {
		for _, j := range rc.Sharing(i) {
			if !visited[j] {
				visited[j] = true
				order = append(order, j)
			}
		}
	}
	if trailerPos >= 0 {
		visit(trailerPos)
	}
	for _, t := range rootTargets {
		visit(t)
	}
	for head := 0; head < len(order); head++ {
		for _, t := range rc.Outgoing(order[head]) {
			visit(t)
		}
	}
	if cfg.keepUnreachable {
		for i := range s.slots {
			visit(i)
		}
	}

	newRefs := make([]core.Reference, len(s.slots))
	res.Mapping = make(map[core.Reference]core.Reference, len(order))
	for n, i := range order {
		newRef := core.Ref(uint32(n+1), 0)
		newRefs[i] = newRef
		if _, seen := res.Mapping[rc.Reference(i)]; !seen {
			res.Mapping[rc.Reference(i)] = newRef
		}
	}

	for i := range s.slots {
		for _, site := range rc.Incoming(i) {
			site.Set(newRefs[i])
		}
	}
	for p, t := range rootTargets {
		for _, site := range rootSites[p] {
			site.Set(newRefs[t])
		}
	}
	for _, site := range rc.Dangling() {
		site.Set(core.Null{})
		res.Nulled++
	}
	for _, site := range rootDangling {
		site.Set(core.Null{})
		res.Nulled++
	}

	for i, sl := range s.slots {
		sl.object().ref = newRefs[i]
	}
	s.reindex()
	s.Sort()
	s.clearFreeList()

	s.logger.Debug("renumbered objects",
		"objects", len(order),
		"removed", len(res.Removed),
		"nulled", res.Nulled)
	return res, nil
}
