package core

import (
	"fmt"

	"github.com/tsawler/pdfstore/internal/filters"
)

// Decode decodes the stream data according to the Filter(s) specified in the
// stream dictionary. It supports FlateDecode, ASCIIHexDecode, ASCII85Decode,
// CCITTFaxDecode and filter chains; image codecs are passed through.
func (s *Stream) Decode() ([]byte, error) {
	names, params, err := s.filterChain()
	if err != nil {
		return nil, err
	}

	data := s.Data
	for i, name := range names {
		data, err = decodeWithFilter(data, name, params[i])
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s) failed: %w", i, name, err)
		}
	}
	return data, nil
}

// Compress flate-encodes an unfiltered stream in place and updates /Filter and
// /Length. Streams that already carry a filter are left alone and false is
// returned.
func (s *Stream) Compress() (bool, error) {
	if s.Dict.Has("Filter") {
		return false, nil
	}
	encoded, err := filters.FlateEncode(s.Data)
	if err != nil {
		return false, err
	}
	if len(encoded) >= len(s.Data) {
		return false, nil
	}
	if s.Dict == nil {
		s.Dict = make(Dict)
	}
	s.Data = encoded
	s.Dict.Set("Filter", Name("FlateDecode"))
	s.Dict.Set("Length", Int(len(encoded)))
	return true, nil
}

// filterChain returns the filter names and their parameters in application
// order. A single /Filter name and an array of names are both accepted.
func (s *Stream) filterChain() ([]string, []filters.Params, error) {
	switch f := s.Dict.Get("Filter").(type) {
	case nil:
		return nil, nil, nil
	case Name:
		return []string{string(f)}, []filters.Params{paramsOf(s.Dict.Get("DecodeParms"))}, nil
	case Array:
		names := make([]string, len(f))
		params := make([]filters.Params, len(f))
		parmsArray, isArray := s.Dict.Get("DecodeParms").(Array)
		for i, elem := range f {
			name, ok := elem.(Name)
			if !ok {
				return nil, nil, fmt.Errorf("filter %d is not a name: %T", i, elem)
			}
			names[i] = string(name)
			if isArray {
				params[i] = paramsOf(parmsArray.Get(i))
			} else {
				params[i] = paramsOf(s.Dict.Get("DecodeParms"))
			}
		}
		return names, params, nil
	default:
		return nil, nil, fmt.Errorf("invalid Filter type: %T", f)
	}
}

// decodeWithFilter applies a single decompression filter to data.
func decodeWithFilter(data []byte, filterName string, params filters.Params) ([]byte, error) {
	switch filterName {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(data, params)
	case "ASCIIHexDecode", "AHx":
		return filters.ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return filters.ASCII85Decode(data)
	case "CCITTFaxDecode", "CCF":
		return filters.CCITTFaxDecode(data, params)
	case "DCTDecode", "DCT", "JPXDecode", "JBIG2Decode":
		// Image codecs are left to the consumer.
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported filter: %s", filterName)
	}
}

// paramsOf converts a DecodeParms dictionary to filter parameters. Anything
// that is not a dictionary yields the defaults.
func paramsOf(obj Object) filters.Params {
	dict, ok := obj.(Dict)
	if !ok {
		return filters.Params{}
	}
	intOf := func(key string) int {
		i, _ := dict.GetInt(key)
		return int(i)
	}
	blackIs1, _ := dict.Get("BlackIs1").(Bool)
	return filters.Params{
		Predictor:        intOf("Predictor"),
		Colors:           intOf("Colors"),
		BitsPerComponent: intOf("BitsPerComponent"),
		Columns:          intOf("Columns"),
		K:                intOf("K"),
		Rows:             intOf("Rows"),
		BlackIs1:         bool(blackIs1),
	}
}
