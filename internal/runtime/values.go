package runtime

import (
	"reflect"
	"strings"
)

// Char is a single character value.
type Char rune

// List is the mutable sequence type.
type List struct {
	Items []any
}

// NewList returns a list holding items.
func NewList(items ...any) *List {
	return &List{Items: items}
}

// Tuple is the immutable sequence type.
type Tuple []any

// Range is an arithmetic progression produced by range().
type Range struct {
	Start, Stop, Step int64
}

// Len returns the number of values in r.
func (r *Range) Len() int64 {
	switch {
	case r.Step > 0 && r.Start < r.Stop:
		return (r.Stop - r.Start + r.Step - 1) / r.Step
	case r.Step < 0 && r.Start > r.Stop:
		return (r.Start - r.Stop - r.Step - 1) / -r.Step
	}
	return 0
}

// At returns the i-th value of r.
func (r *Range) At(i int64) int64 {
	return r.Start + i*r.Step
}

// Dict is an insertion ordered mapping.
type Dict struct {
	keys  []any
	vals  []any
	index map[any]int
}

// NewDict returns an empty dict.
func NewDict() *Dict {
	return &Dict{index: make(map[any]int)}
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []any { return append([]any(nil), d.keys...) }

// Values returns the values in insertion order.
func (d *Dict) Values() []any { return append([]any(nil), d.vals...) }

// Get returns the value stored under key.
func (d *Dict) Get(key any) (any, bool, error) {
	h, err := hashKey(key)
	if err != nil {
		return nil, false, err
	}
	i, ok := d.index[h]
	if !ok {
		return nil, false, nil
	}
	return d.vals[i], true, nil
}

// Set stores value under key, keeping the original position of an existing
// key.
func (d *Dict) Set(key, value any) error {
	h, err := hashKey(key)
	if err != nil {
		return err
	}
	if d.index == nil {
		d.index = make(map[any]int)
	}
	if i, ok := d.index[h]; ok {
		d.vals[i] = value
		return nil
	}
	d.index[h] = len(d.keys)
	d.keys = append(d.keys, key)
	d.vals = append(d.vals, value)
	return nil
}

// Delete removes key, failing with KeyError when it is absent.
func (d *Dict) Delete(key any) error {
	h, err := hashKey(key)
	if err != nil {
		return err
	}
	i, ok := d.index[h]
	if !ok {
		return Raise(KeyError, "%s", Repr(key))
	}
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.vals = append(d.vals[:i], d.vals[i+1:]...)
	delete(d.index, h)
	for k, j := range d.index {
		if j > i {
			d.index[k] = j - 1
		}
	}
	return nil
}

// DictFromKwargs converts a keyword argument map into a dict.
func DictFromKwargs(kwargs map[string]any) *Dict {
	d := NewDict()
	for _, k := range sortedKeys(kwargs) {
		_ = d.Set(k, kwargs[k])
	}
	return d
}

type tupleKey string

// hashKey maps a value to a comparable Go key. Numbers that compare equal
// share a key.
func hashKey(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string:
		return x, nil
	case Char:
		return string(rune(x)), nil
	case float64:
		if x == float64(int64(x)) {
			return int64(x), nil
		}
		return x, nil
	case float32:
		return hashKey(float64(x))
	case Tuple:
		parts := make([]string, len(x))
		for i, e := range x {
			if _, err := hashKey(e); err != nil {
				return nil, err
			}
			parts[i] = Repr(e)
		}
		return tupleKey(strings.Join(parts, ",")), nil
	case *List, *Dict:
		return nil, Raise(TypeError, "unhashable type: '%s'", TypeName(v))
	}
	if i, ok := toInt(v); ok {
		return i, nil
	}
	if !reflect.TypeOf(v).Comparable() {
		return nil, Raise(TypeError, "unhashable type: '%s'", TypeName(v))
	}
	return v, nil
}

// Callable is implemented by every value that can be invoked.
type Callable interface {
	Call(args []any, kwargs map[string]any) (any, error)
}

// Builtin is a named native function.
type Builtin struct {
	Name string
	Fn   func(args []any, kwargs map[string]any) (any, error)
}

func (b *Builtin) Call(args []any, kwargs map[string]any) (any, error) {
	return b.Fn(args, kwargs)
}

// BoundMethod prepends its receiver to every call.
type BoundMethod struct {
	Self any
	Name string
	Fn   Callable
}

func (m *BoundMethod) Call(args []any, kwargs map[string]any) (any, error) {
	full := make([]any, 0, len(args)+1)
	full = append(full, m.Self)
	full = append(full, args...)
	return m.Fn.Call(full, kwargs)
}

// Module is a native module such as math.
type Module struct {
	Name  string
	Attrs map[string]any
}

func (m *Module) AttrDict() map[string]any { return m.Attrs }

// Instance is implemented by values whose class is a runtime value, such
// as instances of source classes.
type Instance interface {
	ClassValue() any
}

// InstanceChecker is implemented by class values usable with isinstance.
type InstanceChecker interface {
	IsInstance(obj any) bool
}

// Iterator drives for loops and next().
type Iterator interface {
	HasNext() bool
	Next() (any, error)
}
