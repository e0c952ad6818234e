package resolver

import (
	"errors"
	"fmt"

	"github.com/tsawler/pdfstore/core"
)

var (
	// ErrCircularReference is returned when a deep resolution revisits a
	// reference that is still being expanded.
	ErrCircularReference = errors.New("resolver: circular reference")

	// ErrMaxDepth is returned when nesting exceeds the configured depth.
	ErrMaxDepth = errors.New("resolver: maximum depth exceeded")

	// ErrDangling is returned in strict mode for references that resolve to
	// nothing.
	ErrDangling = errors.New("resolver: dangling reference")
)

// ObjectResolver expands indirect references in PDF values.
// Values are never modified; deep resolution returns copies of containers.
type ObjectResolver struct {
	reader   ObjectReader
	visited  map[core.Reference]bool // references on the current expansion path
	maxDepth int
	depth    int
	strict   bool
}

// ObjectReader looks up the value of an indirect object. *store.Store
// implements it.
type ObjectReader interface {
	Resolve(ref core.Reference) (core.Object, bool)
}

// Option configures the resolver
type Option func(*ObjectResolver)

// WithMaxDepth sets the maximum nesting depth (default: 100)
func WithMaxDepth(depth int) Option {
	return func(r *ObjectResolver) {
		r.maxDepth = depth
	}
}

// WithStrict makes dangling references an error. By default they resolve to
// null, as PDF prescribes.
func WithStrict() Option {
	return func(r *ObjectResolver) {
		r.strict = true
	}
}

// NewResolver creates a new object resolver
func NewResolver(reader ObjectReader, opts ...Option) *ObjectResolver {
	r := &ObjectResolver{
		reader:   reader,
		visited:  make(map[core.Reference]bool),
		maxDepth: 100,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve follows obj while it is a reference and returns the first value
// that is not. Containers are returned as they are.
func (r *ObjectResolver) Resolve(obj core.Object) (core.Object, error) {
	defer r.Reset()
	return r.resolve(obj, false)
}

// ResolveDeep returns a copy of obj with every reference inside it replaced
// by its resolved value, recursively.
func (r *ObjectResolver) ResolveDeep(obj core.Object) (core.Object, error) {
	defer r.Reset()
	return r.resolve(obj, true)
}

func (r *ObjectResolver) resolve(obj core.Object, deep bool) (core.Object, error) {
	if r.depth >= r.maxDepth {
		return nil, fmt.Errorf("%w (%d)", ErrMaxDepth, r.maxDepth)
	}

	switch v := obj.(type) {
	case core.Reference:
		if r.visited[v] {
			return nil, fmt.Errorf("%w: %v", ErrCircularReference, v)
		}
		r.visited[v] = true
		// Siblings may refer to the same object; only the current path counts.
		defer delete(r.visited, v)

		resolved, ok := r.reader.Resolve(v)
		if !ok {
			if r.strict {
				return nil, fmt.Errorf("%w: %v", ErrDangling, v)
			}
			return core.Null{}, nil
		}

		r.depth++
		defer func() { r.depth-- }()
		return r.resolve(resolved, deep)

	case core.Dict:
		if !deep {
			return v, nil
		}
		resolved := make(core.Dict, len(v))
		for _, key := range v.SortedKeys() {
			value, err := r.nested(v[key])
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", key, err)
			}
			if _, isNull := value.(core.Null); !isNull {
				resolved[key] = value
			}
		}
		return resolved, nil

	case core.Array:
		if !deep {
			return v, nil
		}
		resolved := make(core.Array, len(v))
		for i, elem := range v {
			value, err := r.nested(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			resolved[i] = value
		}
		return resolved, nil

	case *core.Stream:
		if !deep {
			return v, nil
		}
		dict, err := r.nested(v.Dict)
		if err != nil {
			return nil, fmt.Errorf("stream dictionary: %w", err)
		}
		streamDict, _ := dict.(core.Dict)
		return &core.Stream{Dict: streamDict, Data: v.Data}, nil

	case nil:
		return core.Null{}, nil

	default:
		return obj, nil
	}
}

func (r *ObjectResolver) nested(obj core.Object) (core.Object, error) {
	r.depth++
	defer func() { r.depth-- }()
	return r.resolve(obj, true)
}

// Reset clears the expansion state. Resolve and ResolveDeep call it
// themselves; it is only needed after a panic in a reader.
func (r *ObjectResolver) Reset() {
	r.visited = make(map[core.Reference]bool)
	r.depth = 0
}

// ResolveDict deep-resolves a dictionary.
func (r *ObjectResolver) ResolveDict(dict core.Dict) (core.Dict, error) {
	resolved, err := r.ResolveDeep(dict)
	if err != nil {
		return nil, err
	}
	return resolved.(core.Dict), nil
}

// ResolveArray deep-resolves an array.
func (r *ObjectResolver) ResolveArray(arr core.Array) (core.Array, error) {
	resolved, err := r.ResolveDeep(arr)
	if err != nil {
		return nil, err
	}
	return resolved.(core.Array), nil
}

// ResolveReference returns the value of the object ref names, following
// references to references.
func (r *ObjectResolver) ResolveReference(ref core.Reference) (core.Object, error) {
	return r.Resolve(ref)
}

// ResolveReferenceDeep returns the fully expanded value of the object ref names.
func (r *ObjectResolver) ResolveReferenceDeep(ref core.Reference) (core.Object, error) {
	return r.ResolveDeep(ref)
}

// Lookup resolves key in dict, following references, and reports whether a
// non-null value was found.
func (r *ObjectResolver) Lookup(dict core.Dict, key string) (core.Object, bool, error) {
	v, err := r.Resolve(dict.Get(key))
	if err != nil {
		return nil, false, err
	}
	if _, isNull := v.(core.Null); isNull {
		return nil, false, nil
	}
	return v, true, nil
}
