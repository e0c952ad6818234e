package core

import (
	"bytes"
	"fmt"
)

// ObjectStream represents a PDF Object Stream (Type /ObjStm), introduced in PDF 1.5.
// Object streams store multiple objects in a single compressed stream.
type ObjectStream struct {
	stream  *Stream
	n       int
	first   int
	offsets []objectStreamOffset
	decoded []byte
}

// objectStreamOffset pairs an object number with its byte offset relative to First.
type objectStreamOffset struct {
	Number uint32
	Offset int
}

// NewObjectStream creates an ObjectStream from a Stream object.
// The stream must have Type /ObjStm and the entries /N and /First.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}
	if typ, _ := stream.Dict.GetName("Type"); typ != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream, got type %q", typ)
	}

	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N: %v", stream.Dict.Get("N"))
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First: %v", stream.Dict.Get("First"))
	}

	return &ObjectStream{stream: stream, n: int(n), first: int(first)}, nil
}

// N returns the number of objects stored in the stream.
func (os *ObjectStream) N() int {
	return os.n
}

// decode decodes the stream data and parses the header. Called lazily on first access.
func (os *ObjectStream) decode() error {
	if os.decoded != nil {
		return nil
	}

	decoded, err := os.stream.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode object stream: %w", err)
	}
	if os.first > len(decoded) {
		return fmt.Errorf("First offset (%d) exceeds decoded data length (%d)", os.first, len(decoded))
	}

	parser := NewParser(bytes.NewReader(decoded[:os.first]))
	offsets := make([]objectStreamOffset, 0, os.n)
	for i := 0; i < os.n; i++ {
		num, err1 := parser.ParseObject()
		off, err2 := parser.ParseObject()
		numInt, ok1 := num.(Int)
		offInt, ok2 := off.(Int)
		if err1 != nil || err2 != nil || !ok1 || !ok2 || numInt < 0 || offInt < 0 {
			return fmt.Errorf("malformed object stream header at pair %d", i)
		}
		if err := CheckObjectNumber(uint64(numInt)); err != nil {
			return fmt.Errorf("object stream header at pair %d: %w", i, err)
		}
		offsets = append(offsets, objectStreamOffset{Number: uint32(numInt), Offset: int(offInt)})
	}

	os.decoded = decoded
	os.offsets = offsets
	return nil
}

// Objects parses every object stored in the stream. Objects inside an object
// stream always have generation 0. Objects that fail to parse are skipped and
// their errors returned alongside the successfully parsed ones.
func (os *ObjectStream) Objects() ([]IndirectObject, []error, error) {
	if err := os.decode(); err != nil {
		return nil, nil, err
	}

	var objects []IndirectObject
	var errs []error
	for i, entry := range os.offsets {
		start := os.first + entry.Offset
		end := len(os.decoded)
		if i+1 < len(os.offsets) {
			end = os.first + os.offsets[i+1].Offset
		}
		if start >= len(os.decoded) || end > len(os.decoded) || end < start {
			errs = append(errs, fmt.Errorf("object %d: offset %d out of range", entry.Number, entry.Offset))
			continue
		}

		obj, err := NewParser(bytes.NewReader(os.decoded[start:end])).ParseObject()
		if err != nil {
			errs = append(errs, fmt.Errorf("object %d: %w", entry.Number, err))
			continue
		}
		objects = append(objects, IndirectObject{Ref: Reference{Number: entry.Number}, Object: obj})
	}
	return objects, errs, nil
}
