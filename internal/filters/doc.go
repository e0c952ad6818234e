// Package filters implements the PDF stream filters the object store needs to
// inspect and rewrite stream data.
//
// # Supported Filters
//
// FlateDecode (zlib/deflate), with TIFF and PNG predictors:
//
//	decoded, err := filters.FlateDecode(data, filters.Params{Predictor: 12, Columns: 5})
//
// FlateEncode is the inverse without prediction and is used when writing
// compressed files.
//
// ASCIIHexDecode and ASCII85Decode decode the two ASCII armours.
//
// CCITTFaxDecode decodes Group 3 and Group 4 fax data via golang.org/x/image/ccitt.
package filters
