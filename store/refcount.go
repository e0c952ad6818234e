package store

import (
	"github.com/tsawler/pdfstore/core"
)

// ReferenceCounts records, for every entry of a store, the sites that refer
// to it. Positions are store positions at the time of the build; the result
// goes stale as soon as the store is modified.
type ReferenceCounts struct {
	refs     []core.Reference
	incoming [][]Site
	outgoing [][]int
	dangling []Site
	danglers []int // holder position of each dangling site
	index    map[core.Reference][]int // every position holding the reference
}

// BuildReferenceCounts walks every entry's value and records where each
// reference points. References to objects that are not in the store are
// collected as dangling. Sorting is not required.
func (s *Store) BuildReferenceCounts() (*ReferenceCounts, error) {
	if err := s.checkObjectLimit(); err != nil {
		return nil, err
	}

	rc := &ReferenceCounts{
		refs:     make([]core.Reference, len(s.slots)),
		incoming: make([][]Site, len(s.slots)),
		outgoing: make([][]int, len(s.slots)),
		index:    make(map[core.Reference][]int, len(s.slots)),
	}
	for i, sl := range s.slots {
		ref := sl.object().ref
		rc.refs[i] = ref
		rc.index[ref] = append(rc.index[ref], i)
	}

	for i, sl := range s.slots {
		err := collectSites(sl.object(), s.maxNodes, func(site Site, ref core.Reference) {
			target, ok := rc.first(ref)
			if !ok {
				rc.dangling = append(rc.dangling, site)
				rc.danglers = append(rc.danglers, i)
				return
			}
			rc.incoming[target] = append(rc.incoming[target], site)
			rc.outgoing[i] = append(rc.outgoing[i], target)
		})
		if err != nil {
			return nil, err
		}
	}
	return rc, nil
}

// Len returns the number of entries covered.
func (rc *ReferenceCounts) Len() int {
	return len(rc.refs)
}

// Reference returns the reference of the entry at position i.
func (rc *ReferenceCounts) Reference(i int) core.Reference {
	return rc.refs[i]
}

// IndexOf returns the position of the first entry with reference ref.
func (rc *ReferenceCounts) IndexOf(ref core.Reference) (int, bool) {
	return rc.first(ref)
}

// Sharing returns the positions of every entry with the same reference as
// the entry at position i, i included. Sites are recorded against the first
// of them only, so anything that keeps one of them keeps all of them.
func (rc *ReferenceCounts) Sharing(i int) []int {
	return rc.index[rc.refs[i]]
}

func (rc *ReferenceCounts) first(ref core.Reference) (int, bool) {
	if positions := rc.index[ref]; len(positions) > 0 {
		return positions[0], true
	}
	return 0, false
}

// Incoming returns the sites that refer to the entry at position i.
func (rc *ReferenceCounts) Incoming(i int) []Site {
	return rc.incoming[i]
}

// Count returns the number of sites that refer to the entry at position i.
func (rc *ReferenceCounts) Count(i int) int {
	return len(rc.incoming[i])
}

// Outgoing returns the positions the entry at position i refers to, in the
// order the references were found. A target appears once per site.
func (rc *ReferenceCounts) Outgoing(i int) []int {
	return rc.outgoing[i]
}

// Dangling returns the sites whose reference names no entry.
func (rc *ReferenceCounts) Dangling() []Site {
	return rc.dangling
}

// Unreferenced returns the references of entries no site refers to.
func (rc *ReferenceCounts) Unreferenced() []core.Reference {
	var refs []core.Reference
	for i, sites := range rc.incoming {
		if len(sites) == 0 {
			refs = append(refs, rc.refs[i])
		}
	}
	return refs
}

// rootSites collects the references written in a trailer that is not itself
// an entry of the store, split into resolved targets and dangling sites.
func (rc *ReferenceCounts) rootSites(trailer *Object, maxNodes int) (targets []int, sites [][]Site, dangling []Site, err error) {
	pos := make(map[int]int)
	err = collectSites(trailer, maxNodes, func(site Site, ref core.Reference) {
		target, ok := rc.first(ref)
		if !ok {
			dangling = append(dangling, site)
			return
		}
		if p, seen := pos[target]; seen {
			sites[p] = append(sites[p], site)
			return
		}
		pos[target] = len(targets)
		targets = append(targets, target)
		sites = append(sites, []Site{site})
	})
	return targets, sites, dangling, err
}

func (s *Store) checkObjectLimit() error {
	if s.maxObjects > 0 && len(s.slots) > s.maxObjects {
		return &TraversalError{What: "objects", Limit: s.maxObjects}
	}
	return nil
}
