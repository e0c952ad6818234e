// Package store holds the indirect objects of a PDF document.
//
// A Store is an ordered table of objects keyed by reference (object number
// and generation). It allocates references for new objects, recycles freed
// references through a FIFO free list, and keeps an explicit count of the
// objects it owns. Entries are either owned, in which case the store releases
// and reclaims them, or borrowed from another owner and merely visible
// through the store.
//
// # Reachability
//
// PDF files carry no reference counts. BuildReferenceCounts reconstructs them
// by walking every value and recording each site that holds a reference.
// CollectGarbage marks everything reachable from the trailer and sweeps the
// rest. RenumberObjects compacts the survivors to the numbering 1..N before a
// document is written.
//
// All walks are iterative and bounded: per-object node counts are capped by
// WithMaxNodes and the store size by WithMaxObjects, so cyclic or absurdly
// nested input ends in a *TraversalError rather than a stack overflow.
//
// # Example
//
//	s := store.New()
//	catalog := s.CreateObject("Catalog")
//	pages := s.CreateObject("Pages")
//	d, _ := catalog.Dict()
//	d.Set("Pages", pages.Reference())
//
//	trailer := store.NewObject(core.Reference{}, core.Dict{"Root": catalog.Reference()})
//	if _, err := s.RenumberObjects(trailer); err != nil {
//		return err
//	}
package store
