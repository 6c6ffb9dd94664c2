package runtime

import (
	"fmt"
	"reflect"
)

var (
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

// HostFunc wraps a Go function or bound method value.
type HostFunc struct {
	Name string
	Fn   reflect.Value
}

func (h *HostFunc) Call(args []any, kwargs map[string]any) (any, error) {
	if len(kwargs) > 0 {
		return nil, Raise(TypeError, "%s() takes no keyword arguments", h.Name)
	}
	return callReflect(h.Fn, args, h.Name)
}

func (h *HostFunc) String() string {
	return fmt.Sprintf("<host function %s>", h.Name)
}

func callReflect(fn reflect.Value, args []any, name string) (any, error) {
	ft := fn.Type()
	n := ft.NumIn()

	if ft.IsVariadic() {
		if len(args) < n-1 {
			return nil, Raise(TypeError, "%s() takes at least %d arguments (%d given)", name, n-1, len(args))
		}
	} else if len(args) != n {
		return nil, Raise(TypeError, "%s() takes %d arguments (%d given)", name, n, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var pt reflect.Type
		if ft.IsVariadic() && i >= n-1 {
			pt = ft.In(n - 1).Elem()
		} else {
			pt = ft.In(i)
		}
		v, err := toHost(arg, pt)
		if err != nil {
			return nil, err
		}
		in[i] = v
	}

	return callReflectValues(fn, in)
}

func callReflectValues(fn reflect.Value, in []reflect.Value) (any, error) {
	out := fn.Call(in)
	if n := len(out); n > 0 && fn.Type().Out(n-1) == errorType {
		if err, _ := out[n-1].Interface().(error); err != nil {
			return nil, err
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return fromHost(out[0]), nil
	}
	vals := make(Tuple, len(out))
	for i, o := range out {
		vals[i] = fromHost(o)
	}
	return vals, nil
}

// toHost converts a runtime value to a Go value of type t.
func toHost(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, Raise(TypeError, "cannot use None as %s", t)
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if i, ok := toInt(value); ok && !isFloat(value) {
			return reflect.ValueOf(i).Convert(t), nil
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := toFloat(value); ok {
			return reflect.ValueOf(f).Convert(t), nil
		}
	case reflect.String:
		switch s := value.(type) {
		case string:
			return reflect.ValueOf(s).Convert(t), nil
		case Char:
			return reflect.ValueOf(string(rune(s))).Convert(t), nil
		}
	case reflect.Slice:
		var items []any
		switch seq := value.(type) {
		case *List:
			items = seq.Items
		case Tuple:
			items = seq
		default:
			return reflect.Value{}, Raise(TypeError, "cannot use %s as %s", TypeName(value), t)
		}
		out := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			v, err := toHost(item, t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(v)
		}
		return out, nil
	}

	return reflect.Value{}, Raise(TypeError, "cannot use %s as %s", TypeName(value), t)
}

// fromHost normalizes a Go value: integers become int64 and floats
// float64, except for named types with a String method.
func fromHost(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return fromHost(v.Elem())
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	if !v.CanInterface() {
		return nil
	}
	if v.Type().Implements(stringerType) {
		return v.Interface()
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Bool:
		return v.Bool()
	case reflect.String:
		return v.String()
	}
	return v.Interface()
}

// HostType is the runtime value of a registered host class. Calling it
// allocates a new value; struct fields are filled from positional
// arguments in declaration order and from keyword arguments by name.
type HostType struct {
	Name string
	T    reflect.Type
}

func (h *HostType) Call(args []any, kwargs map[string]any) (any, error) {
	if h.T.Kind() != reflect.Struct {
		if len(args) != 1 || len(kwargs) > 0 {
			return nil, Raise(TypeError, "%s() takes exactly one argument", h.Name)
		}
		v, err := toHost(args[0], h.T)
		if err != nil {
			return nil, err
		}
		return v.Interface(), nil
	}

	ptr := reflect.New(h.T)
	var fields []reflect.StructField
	for _, f := range reflect.VisibleFields(h.T) {
		if f.IsExported() && !f.Anonymous {
			fields = append(fields, f)
		}
	}
	if len(args) > len(fields) {
		return nil, Raise(TypeError, "%s() takes at most %d positional arguments (%d given)", h.Name, len(fields), len(args))
	}
	for i, arg := range args {
		v, err := toHost(arg, fields[i].Type)
		if err != nil {
			return nil, err
		}
		ptr.Elem().FieldByIndex(fields[i].Index).Set(v)
	}

	obj := ptr.Interface()
	for _, k := range sortedKeys(kwargs) {
		if err := SetAttr(obj, k, kwargs[k]); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func (h *HostType) IsInstance(obj any) bool {
	if obj == nil {
		return false
	}
	t := reflect.TypeOf(obj)
	if t == h.T || t == reflect.PointerTo(h.T) {
		return true
	}
	return h.T.Kind() == reflect.Interface && t.Implements(h.T)
}

func (h *HostType) TypeName() string { return "type" }

func (h *HostType) String() string {
	return fmt.Sprintf("<class '%s'>", h.Name)
}
