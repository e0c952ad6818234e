// Package core provides the PDF value model shared by the object store and
// its collaborators.
//
// # Values
//
// PDF defines eight basic object types, all implemented as types satisfying
// the Object interface:
//
//   - [Null], [Bool], [Int], [Real], [String], [Name]
//   - [Array] and [Dict], which nest other values
//   - [Stream], a dictionary plus binary data
//
// A [Reference] leaf names an indirect object by object number and
// generation. References are comparable, ordered (see [Reference.Compare]) and
// usable as map keys. Because any value may embed references, the indirect
// objects of a document form a graph, possibly cyclic.
//
// [Clone] deep-copies a value and [Equal] compares two values structurally.
//
// # Syntax
//
// The [Lexer] and [Parser] read PDF syntax: single values, indirect object
// definitions ("12 0 obj ... endobj") including streams, and trailer
// dictionaries. [WriteObject] is the inverse and writes dictionary keys in
// sorted order so equal values always serialize to equal bytes.
//
// [ParseXRefChain] reads the classic cross-reference tables of a file, newest
// first, following /Prev. The reader only takes free entries from them.
//
// # Streams
//
// [Stream.Decode] applies the stream's filter chain (FlateDecode with
// predictors, ASCIIHexDecode, ASCII85Decode, CCITTFaxDecode).
// [Stream.Compress] flate-encodes an unfiltered stream. [ObjectStream] expands
// PDF 1.5 object streams into the objects they carry.
//
// # Text
//
// [String.Text] decodes text strings (UTF-16BE with byte order mark, or
// PDFDocEncoding) and [TextString] encodes them.
package core
