package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tsawler/pdfstore/core"
)

// maxDepth bounds the nesting of encoded values.
const maxDepth = 512

// Value kinds. The numbering is part of the file format.
const (
	kindNull byte = iota
	kindBool
	kindInt
	kindReal
	kindString
	kindName
	kindArray
	kindDict
	kindStream
	kindRef
)

// node is the msgpack form of a core.Object.
type node struct {
	Kind  byte            `msgpack:"k"`
	Bool  bool            `msgpack:"b,omitempty"`
	Int   int64           `msgpack:"i,omitempty"`
	Real  float64         `msgpack:"r,omitempty"`
	Bytes []byte          `msgpack:"s,omitempty"`
	Array []node          `msgpack:"a,omitempty"`
	Dict  map[string]node `msgpack:"d,omitempty"`
	Num   uint32          `msgpack:"n,omitempty"`
	Gen   uint16          `msgpack:"g,omitempty"`
}

func toNode(obj core.Object, depth int) (node, error) {
	if depth > maxDepth {
		return node{}, fmt.Errorf("value nested deeper than %d", maxDepth)
	}
	switch v := obj.(type) {
	case nil, core.Null:
		return node{Kind: kindNull}, nil
	case core.Bool:
		return node{Kind: kindBool, Bool: bool(v)}, nil
	case core.Int:
		return node{Kind: kindInt, Int: int64(v)}, nil
	case core.Real:
		return node{Kind: kindReal, Real: float64(v)}, nil
	case core.String:
		return node{Kind: kindString, Bytes: []byte(v)}, nil
	case core.Name:
		return node{Kind: kindName, Bytes: []byte(v)}, nil
	case core.Reference:
		return node{Kind: kindRef, Num: v.Number, Gen: v.Generation}, nil
	case core.Array:
		n := node{Kind: kindArray, Array: make([]node, len(v))}
		for i, elem := range v {
			var err error
			if n.Array[i], err = toNode(elem, depth+1); err != nil {
				return node{}, err
			}
		}
		return n, nil
	case core.Dict:
		n := node{Kind: kindDict, Dict: make(map[string]node, len(v))}
		for key, elem := range v {
			child, err := toNode(elem, depth+1)
			if err != nil {
				return node{}, err
			}
			n.Dict[key] = child
		}
		return n, nil
	case *core.Stream:
		dict, err := toNode(v.Dict, depth+1)
		if err != nil {
			return node{}, err
		}
		return node{Kind: kindStream, Dict: dict.Dict, Bytes: v.Data}, nil
	default:
		return node{}, fmt.Errorf("cannot encode %T", obj)
	}
}

func (n node) object() (core.Object, error) {
	switch n.Kind {
	case kindNull:
		return core.Null{}, nil
	case kindBool:
		return core.Bool(n.Bool), nil
	case kindInt:
		return core.Int(n.Int), nil
	case kindReal:
		return core.Real(n.Real), nil
	case kindString:
		return core.String(n.Bytes), nil
	case kindName:
		return core.Name(n.Bytes), nil
	case kindRef:
		return core.Ref(n.Num, n.Gen), nil
	case kindArray:
		arr := make(core.Array, len(n.Array))
		for i, child := range n.Array {
			var err error
			if arr[i], err = child.object(); err != nil {
				return nil, err
			}
		}
		return arr, nil
	case kindDict, kindStream:
		dict := make(core.Dict, len(n.Dict))
		for key, child := range n.Dict {
			v, err := child.object()
			if err != nil {
				return nil, err
			}
			dict[key] = v
		}
		if n.Kind == kindDict {
			return dict, nil
		}
		return &core.Stream{Dict: dict, Data: n.Bytes}, nil
	default:
		return nil, fmt.Errorf("unknown value kind %d", n.Kind)
	}
}

func encodeValue(obj core.Object) ([]byte, error) {
	n, err := toNode(obj, 0)
	if err != nil {
		return nil, err
	}
	return marshal(n)
}

func decodeValue(data []byte) (core.Object, error) {
	var n node
	if err := msgpack.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return n.object()
}

// marshal encodes v with sorted map keys so equal stores give equal files.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// refKey is the big-endian object number followed by the generation, so
// that Bolt's byte order is reference order.
func refKey(ref core.Reference) []byte {
	key := make([]byte, 6)
	binary.BigEndian.PutUint32(key, ref.Number)
	binary.BigEndian.PutUint16(key[4:], ref.Generation)
	return key
}

func keyRef(key []byte) (core.Reference, error) {
	if len(key) != 6 {
		return core.Reference{}, fmt.Errorf("malformed object key %x", key)
	}
	return core.Ref(binary.BigEndian.Uint32(key), binary.BigEndian.Uint16(key[4:])), nil
}
