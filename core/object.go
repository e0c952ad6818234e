package core

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Object represents a PDF value. Values form trees; a Reference leaf points at
// an indirect object held elsewhere, which is what turns a document into a graph.
type Object interface {
	Type() ObjectType
	String() string
}

// ObjectType represents the type of PDF object
type ObjectType int

const (
	ObjNull ObjectType = iota
	ObjBool
	ObjInt
	ObjReal
	ObjString
	ObjName
	ObjArray
	ObjDict
	ObjStream
	ObjReference
)

// String returns the string representation of the object type
func (t ObjectType) String() string {
	switch t {
	case ObjNull:
		return "Null"
	case ObjBool:
		return "Bool"
	case ObjInt:
		return "Int"
	case ObjReal:
		return "Real"
	case ObjString:
		return "String"
	case ObjName:
		return "Name"
	case ObjArray:
		return "Array"
	case ObjDict:
		return "Dict"
	case ObjStream:
		return "Stream"
	case ObjReference:
		return "Reference"
	default:
		return "Unknown"
	}
}

// Null represents a PDF null object
type Null struct{}

func (n Null) Type() ObjectType { return ObjNull }
func (n Null) String() string   { return "null" }

// Bool represents a PDF boolean
type Bool bool

func (b Bool) Type() ObjectType { return ObjBool }
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

// Int represents a PDF integer
type Int int64

func (i Int) Type() ObjectType { return ObjInt }
func (i Int) String() string   { return strconv.FormatInt(int64(i), 10) }

// Real represents a PDF real number
type Real float64

func (r Real) Type() ObjectType { return ObjReal }
func (r Real) String() string   { return strconv.FormatFloat(float64(r), 'f', -1, 64) }

// String represents a PDF string. The bytes are kept undecoded; see Text for
// text strings.
type String string

func (s String) Type() ObjectType { return ObjString }
func (s String) String() string   { return string(s) }

// Name represents a PDF name
type Name string

func (n Name) Type() ObjectType { return ObjName }
func (n Name) String() string   { return "/" + string(n) }

// Array represents a PDF array
type Array []Object

func (a Array) Type() ObjectType { return ObjArray }
func (a Array) String() string {
	parts := make([]string, 0, len(a))
	for _, obj := range a {
		parts = append(parts, stringOf(obj))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Len returns the length of the array
func (a Array) Len() int {
	return len(a)
}

// Get retrieves an element at the given index
func (a Array) Get(index int) Object {
	if index < 0 || index >= len(a) {
		return nil
	}
	return a[index]
}

// GetInt retrieves an integer at the given index
func (a Array) GetInt(index int) (Int, bool) {
	i, ok := a.Get(index).(Int)
	return i, ok
}

// GetReference retrieves a reference at the given index
func (a Array) GetReference(index int) (Reference, bool) {
	r, ok := a.Get(index).(Reference)
	return r, ok
}

// Dict represents a PDF dictionary. Keys are names without the leading slash.
type Dict map[string]Object

func (d Dict) Type() ObjectType { return ObjDict }

// String renders the dictionary with its keys sorted so the output is stable.
func (d Dict) String() string {
	parts := make([]string, 0, len(d))
	for _, key := range d.SortedKeys() {
		parts = append(parts, fmt.Sprintf("/%s %s", key, stringOf(d[key])))
	}
	return "<<" + strings.Join(parts, " ") + ">>"
}

// Get retrieves a value from the dictionary
func (d Dict) Get(key string) Object {
	return d[key]
}

// GetName retrieves a name value
func (d Dict) GetName(key string) (Name, bool) {
	name, ok := d[key].(Name)
	return name, ok
}

// GetInt retrieves an integer value
func (d Dict) GetInt(key string) (Int, bool) {
	i, ok := d[key].(Int)
	return i, ok
}

// GetDict retrieves a dictionary value
func (d Dict) GetDict(key string) (Dict, bool) {
	dict, ok := d[key].(Dict)
	return dict, ok
}

// GetArray retrieves an array value
func (d Dict) GetArray(key string) (Array, bool) {
	arr, ok := d[key].(Array)
	return arr, ok
}

// GetString retrieves a string value
func (d Dict) GetString(key string) (String, bool) {
	s, ok := d[key].(String)
	return s, ok
}

// GetReference retrieves an indirect reference
func (d Dict) GetReference(key string) (Reference, bool) {
	ref, ok := d[key].(Reference)
	return ref, ok
}

// Has checks if a key exists in the dictionary
func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Set sets a value in the dictionary
func (d Dict) Set(key string, value Object) {
	d[key] = value
}

// Delete removes a key from the dictionary
func (d Dict) Delete(key string) {
	delete(d, key)
}

// Keys returns all keys in the dictionary in no particular order
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	return keys
}

// SortedKeys returns all keys in the dictionary in byte order. Every walk that
// must be reproducible iterates dictionaries this way.
func (d Dict) SortedKeys() []string {
	keys := d.Keys()
	sort.Strings(keys)
	return keys
}

// Stream represents a PDF stream object
type Stream struct {
	Dict Dict
	Data []byte
}

func (s *Stream) Type() ObjectType { return ObjStream }
func (s *Stream) String() string {
	return fmt.Sprintf("stream %s (%d bytes)", s.Dict.String(), len(s.Data))
}

// Reference identifies an indirect object by object number and generation.
// References are ordered by number, then generation.
type Reference struct {
	Number     uint32
	Generation uint16
}

// MaxObjectNumber is the largest object number a file may define. Larger
// numbers would make the cross-reference table unreasonably big.
const MaxObjectNumber = 8_388_607

// ErrObjectNumber is returned for defined object numbers above MaxObjectNumber.
var ErrObjectNumber = errors.New("object number out of range")

// CheckObjectNumber returns ErrObjectNumber if num cannot be defined.
func CheckObjectNumber(num uint64) error {
	if num > MaxObjectNumber {
		return fmt.Errorf("%w: %d > %d", ErrObjectNumber, num, MaxObjectNumber)
	}
	return nil
}

// Ref is shorthand for Reference{Number: num, Generation: gen}.
func Ref(num uint32, gen uint16) Reference {
	return Reference{Number: num, Generation: gen}
}

func (r Reference) Type() ObjectType { return ObjReference }
func (r Reference) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

// Compare returns -1, 0 or +1 depending on whether r sorts before, equal to,
// or after other.
func (r Reference) Compare(other Reference) int {
	if c := cmp.Compare(r.Number, other.Number); c != 0 {
		return c
	}
	return cmp.Compare(r.Generation, other.Generation)
}

// Less reports whether r sorts before other.
func (r Reference) Less(other Reference) bool {
	return r.Compare(other) < 0
}

// IsZero reports whether r is the zero reference. Object number 0 is always
// the head of the free list in a PDF file and never names a live object.
func (r Reference) IsZero() bool {
	return r == Reference{}
}

// IndirectObject pairs a value with the reference it was defined under.
type IndirectObject struct {
	Ref    Reference
	Object Object
}

func stringOf(obj Object) string {
	if obj == nil {
		return "null"
	}
	return obj.String()
}

// ErrNodeLimit is returned by CloneLimited when a value has more nodes than
// allowed.
var ErrNodeLimit = errors.New("node limit exceeded")

// Clone returns a deep copy of obj. Arrays, dictionaries and streams are
// copied; scalars are returned as is. A container that appears more than once
// in obj is copied once and the copy appears in the same places, so values
// that contain themselves are copied too.
func Clone(obj Object) Object {
	c, _ := CloneLimited(obj, 0)
	return c
}

// CloneLimited is Clone with a bound on the number of nodes visited. Zero
// means no bound. Exceeding it returns ErrNodeLimit.
func CloneLimited(obj Object, maxNodes int) (Object, error) {
	c := cloner{memo: make(map[cloneKey]Object), maxNodes: maxNodes}
	root, err := c.copy(obj)
	if err != nil {
		return nil, err
	}
	for len(c.work) > 0 {
		w := c.work[len(c.work)-1]
		c.work = c.work[:len(c.work)-1]

		switch src := w.src.(type) {
		case Array:
			dst := w.dst.(Array)
			for i, elem := range src {
				if dst[i], err = c.copy(elem); err != nil {
					return nil, err
				}
			}
		case Dict:
			dst := w.dst.(Dict)
			for key, elem := range src {
				if dst[key], err = c.copy(elem); err != nil {
					return nil, err
				}
			}
		case *Stream:
			if src.Dict == nil {
				continue
			}
			d, err := c.copy(src.Dict)
			if err != nil {
				return nil, err
			}
			w.dst.(*Stream).Dict = d.(Dict)
		}
	}
	return root, nil
}

// cloneKey identifies a container by its backing storage.
type cloneKey struct {
	typ ObjectType
	ptr uintptr
	len int
}

type cloneWork struct {
	src, dst Object
}

type cloner struct {
	memo     map[cloneKey]Object
	work     []cloneWork
	nodes    int
	maxNodes int
}

// copy returns the copy of obj. A container seen for the first time gets an
// empty copy that is queued to be filled.
func (c *cloner) copy(obj Object) (Object, error) {
	c.nodes++
	if c.maxNodes > 0 && c.nodes > c.maxNodes {
		return nil, fmt.Errorf("%w (%d)", ErrNodeLimit, c.maxNodes)
	}

	var (
		key cloneKey
		dst Object
	)
	switch v := obj.(type) {
	case Array:
		if len(v) == 0 {
			if v == nil {
				return Array(nil), nil
			}
			return Array{}, nil
		}
		key = cloneKey{ObjArray, reflect.ValueOf(v).Pointer(), len(v)}
		dst = make(Array, len(v))
	case Dict:
		if v == nil {
			return Dict(nil), nil
		}
		key = cloneKey{typ: ObjDict, ptr: reflect.ValueOf(v).Pointer()}
		dst = make(Dict, len(v))
	case *Stream:
		if v == nil {
			return v, nil
		}
		key = cloneKey{typ: ObjStream, ptr: reflect.ValueOf(v).Pointer()}
		dst = &Stream{Data: append([]byte(nil), v.Data...)}
	default:
		return obj, nil
	}

	if seen, ok := c.memo[key]; ok {
		return seen, nil
	}
	c.memo[key] = dst
	c.work = append(c.work, cloneWork{src: obj, dst: dst})
	return dst, nil
}

// Equal reports whether a and b are structurally equal values.
func Equal(a, b Object) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Dict:
		y, ok := b.(Dict)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, ok := y[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	case *Stream:
		y, ok := b.(*Stream)
		if !ok {
			return false
		}
		return Equal(x.Dict, y.Dict) && string(x.Data) == string(y.Data)
	default:
		return a == b
	}
}
