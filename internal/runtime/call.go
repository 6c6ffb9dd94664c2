package runtime

import "reflect"

// Call invokes callee with positional and keyword arguments. Anything that
// is not a Callable must be a Go function value.
func Call(callee any, args []any, kwargs map[string]any) (any, error) {
	if c, ok := callee.(Callable); ok {
		return c.Call(args, kwargs)
	}
	if callee != nil {
		if rv := reflect.ValueOf(callee); rv.Kind() == reflect.Func && !rv.IsNil() {
			return (&HostFunc{Name: rv.Type().String(), Fn: rv}).Call(args, kwargs)
		}
	}
	return nil, Raise(TypeError, "'%s' object is not callable", TypeName(callee))
}

// CallMember looks up name on owner and calls the result.
func CallMember(owner any, name string, args []any, kwargs map[string]any) (any, error) {
	fn, err := GetAttr(owner, name)
	if err != nil {
		return nil, err
	}
	return Call(fn, args, kwargs)
}
