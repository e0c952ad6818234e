// Package writer serializes an object store as a PDF file.
//
// Objects are written in store order, so a store that was renumbered with
// store.RenumberObjects produces a compact file whose cross-reference table
// has no free entries:
//
//	if _, err := s.RenumberObjects(trailer); err != nil {
//		return err
//	}
//	_, err := writer.Write(f, s, trailer, writer.WithCompression())
//
// The output uses a classic cross-reference table. Incremental updates,
// cross-reference streams and encryption are not produced.
package writer
