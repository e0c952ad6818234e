package filters

import (
	"bytes"
	"io"

	"golang.org/x/image/ccitt"
)

// CCITTFaxDecode decodes CCITT Group 3/4 fax compressed data.
//
// K selects the group (K < 0 is Group 4, otherwise Group 3), Columns defaults
// to 1728, a zero Rows auto-detects the height, and BlackIs1 inverts the output.
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	sf := ccitt.Group3
	if params.K < 0 {
		sf = ccitt.Group4
	}

	rows := params.Rows
	if rows <= 0 {
		rows = ccitt.AutoDetectHeight
	}

	opts := &ccitt.Options{Invert: params.BlackIs1}
	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf, params.columns(1728), rows, opts)
	return io.ReadAll(r)
}
