// Package snapshot persists an object store in a Bolt database.
//
// A snapshot keeps a store between runs without re-parsing the PDF it came
// from. Objects live in the "objects" bucket keyed by reference, so a cursor
// walks them in reference order; values are encoded with msgpack. The free
// list and the trailer live in the "meta" bucket.
//
//	if err := snapshot.Save("doc.db", doc.Objects, doc.Trailer); err != nil {
//		return err
//	}
//	s, trailer, err := snapshot.Load("doc.db")
package snapshot
