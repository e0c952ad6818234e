// Package reader loads PDF files into an object store.
//
// # Loading
//
// Use [Open] to load a file; it is memory-mapped while it is parsed:
//
//	doc, err := reader.Open("document.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	root, _ := doc.Root()
//	catalog := doc.Objects.GetObject(root)
//
// Or use [Load] with data already in memory.
//
// # Damaged Files
//
// The loader does not depend on the cross-reference table. It scans the file
// body for object definitions and trailer dictionaries, so truncated files,
// files with stale offsets and files without any table still load. Problems
// that can be skipped, such as an unparsable object or a stream whose /Length
// is wrong, are reported in Document.Warnings instead of failing the load.
//
// # Object Streams
//
// Objects packed into object streams (PDF 1.5) are unpacked into the store.
// The object streams themselves and cross-reference streams describe the file
// layout only and are not kept; a writer produces its own.
//
// # Free Entries
//
// Numbers that a classic cross-reference table marks free, and that no object
// defines, are queued on the store's free list, so the next created object
// takes the first of them:
//
//	fmt.Println(doc.Objects.FreeObjects()) // [2 1 R 5 0 R]
package reader
