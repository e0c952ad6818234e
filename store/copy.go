package store

import (
	"errors"

	"github.com/tsawler/pdfstore/core"
)

// Clone returns a deep copy of the store. See CopyFrom.
func (s *Store) Clone() (*Store, error) {
	c := &Store{
		maxNodes:   s.maxNodes,
		maxObjects: s.maxObjects,
		logger:     s.logger,
	}
	c.reset()
	if err := c.CopyFrom(s); err != nil {
		return nil, err
	}
	return c, nil
}

// CopyFrom replaces the contents of s with a copy of src. Owned objects are
// deep-copied and the copies are owned by s; borrowed objects are shared,
// since neither store owns them. The object count, free list and auto-delete
// flag are copied as well. The previous contents of s are released as Close
// would release them.
//
// Each value is copied under the node limit of s. A value that exceeds it
// fails with a *TraversalError and leaves s unchanged.
func (s *Store) CopyFrom(src *Store) error {
	if s == src {
		return nil
	}

	slots := make([]slot, len(src.slots))
	var copies []*Object
	for i, sl := range src.slots {
		obj := sl.object()
		if !sl.owned() {
			slots[i] = borrowedSlot{obj}
			continue
		}
		value, err := core.CloneLimited(obj.value, s.maxNodes)
		if errors.Is(err, core.ErrNodeLimit) {
			return &TraversalError{Ref: obj.ref, What: "value nodes", Limit: s.maxNodes}
		}
		if err != nil {
			return err
		}
		c := &Object{ref: obj.ref, value: value}
		copies = append(copies, c)
		slots[i] = ownedSlot{c}
	}

	s.Close()
	for _, c := range copies {
		c.owner = s
	}
	s.slots = slots
	s.objectCount = src.objectCount
	s.unsorted = src.unsorted
	s.autoDelete = src.autoDelete
	s.reindex()
	for _, ref := range src.freeList {
		s.AddFreeObject(ref)
	}
	return nil
}
