// Package resolver expands PDF indirect references.
//
// PDF values refer to indirect objects with references such as "5 0 R". A
// resolver looks those up through an ObjectReader, usually a *store.Store,
// and either follows a single chain (Resolve) or expands a whole value tree
// (ResolveDeep).
//
// # Basic Usage
//
//	r := resolver.NewResolver(s)
//	pages, err := r.ResolveReference(catalogPagesRef)
//
// # Deep Resolution
//
//	resolved, err := r.ResolveDeep(trailerDict)
//
// The result is a copy; the store is never modified.
//
// # Cycles and Dangling References
//
// A reference that is revisited while it is still being expanded yields
// ErrCircularReference; nesting beyond WithMaxDepth yields ErrMaxDepth.
// References to objects that do not exist resolve to null unless the
// resolver was created WithStrict, in which case they yield ErrDangling.
package resolver
