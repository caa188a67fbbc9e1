package jsondiff

import (
	"sort"
	"strconv"
	"strings"
)

// DefaultSeparator joins path segments.
const DefaultSeparator = "."

type options struct {
	separator       string
	emptyContainers bool
}

// Option configures flattening and comparison.
type Option func(*options)

// WithSeparator sets the string used to join path segments.
func WithSeparator(sep string) Option {
	return func(o *options) {
		if sep != "" {
			o.separator = sep
		}
	}
}

// WithEmptyContainers makes an empty object or array below the root produce a
// leaf holding the empty container. By default empty containers produce no
// path at all.
func WithEmptyContainers(keep bool) Option {
	return func(o *options) {
		o.emptyContainers = keep
	}
}

func buildOptions(opts []Option) options {
	o := options{separator: DefaultSeparator}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Flat is a flattened document.
type Flat struct {
	// Paths lists every leaf path in first-encountered order.
	Paths []string
	// Leaves maps each path to its leaf value.
	Leaves map[string]any
	// Collisions lists paths spelled a second time by keys that contain the
	// separator. Only the first leaf for such a path is kept.
	Collisions []string
}

// Len returns the number of leaves.
func (f *Flat) Len() int { return len(f.Paths) }

// Get returns the leaf at path.
func (f *Flat) Get(path string) (any, bool) {
	v, ok := f.Leaves[path]
	return v, ok
}

// Flatten converts v into leaf paths and values.
func Flatten(v any, opts ...Option) *Flat {
	o := buildOptions(opts)
	f := &Flat{Leaves: make(map[string]any)}
	fl := flattener{opts: o, out: f}
	fl.walk(v, "", true)
	return f
}

type flattener struct {
	opts options
	out  *Flat
}

func (fl *flattener) walk(v any, prefix string, root bool) {
	sep := fl.opts.separator
	switch x := v.(type) {
	case Object:
		if len(x) == 0 {
			fl.empty(x, prefix, root)
			return
		}
		for _, m := range x {
			fl.walk(m.Value, prefix+m.Key+sep, false)
		}
	case Array:
		if len(x) == 0 {
			fl.empty(x, prefix, root)
			return
		}
		for i, elem := range x {
			fl.walk(elem, prefix+strconv.Itoa(i)+sep, false)
		}
	case []any:
		fl.walk(Array(x), prefix, root)
	case map[string]any:
		fl.walk(objectFromMap(x), prefix, root)
	default:
		fl.leaf(prefix, v)
	}
}

func (fl *flattener) empty(container any, prefix string, root bool) {
	if !fl.opts.emptyContainers || root {
		return
	}
	fl.leaf(prefix, container)
}

func (fl *flattener) leaf(prefix string, v any) {
	path := strings.TrimSuffix(prefix, fl.opts.separator)
	if _, dup := fl.out.Leaves[path]; dup {
		fl.out.Collisions = append(fl.out.Collisions, path)
		return
	}
	fl.out.Leaves[path] = v
	fl.out.Paths = append(fl.out.Paths, path)
}

// Resolve follows path down v and returns the value found there. Keys that
// themselves contain the separator cannot be addressed.
func Resolve(v any, path string, opts ...Option) (any, bool) {
	o := buildOptions(opts)
	if path == "" {
		switch x := v.(type) {
		case Object:
			return x.Get("")
		case map[string]any:
			val, ok := x[""]
			return val, ok
		case Array, []any:
			return nil, false
		}
		return v, true
	}

	cur := v
	for _, seg := range strings.Split(path, o.separator) {
		switch x := cur.(type) {
		case Object:
			next, ok := x.Get(seg)
			if !ok {
				return nil, false
			}
			cur = next
		case map[string]any:
			next, ok := x[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case Array:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(x) {
				return nil, false
			}
			cur = x[i]
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(x) {
				return nil, false
			}
			cur = x[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// objectFromMap converts a plain map into an Object. Go maps carry no order,
// so keys are sorted to keep flattening deterministic.
func objectFromMap(m map[string]any) Object {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	obj := make(Object, 0, len(m))
	for _, k := range keys {
		obj = append(obj, Member{Key: k, Value: m[k]})
	}
	return obj
}
