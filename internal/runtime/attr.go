package runtime

import (
	"errors"
	"reflect"
	"sync"
	"unicode"
	"unicode/utf8"
)

// AttrGetter is the catch-all getter consulted after the reflective steps.
// Returning an error matching ErrNoAttribute falls through to AttrDict.
type AttrGetter interface {
	GetAttr(name string) (any, error)
}

// AttrSetter is the catch-all setter.
type AttrSetter interface {
	SetAttr(name string, value any) error
}

// AttrDeleter is the catch-all deleter.
type AttrDeleter interface {
	DelAttr(name string) error
}

// AttrDicter exposes an object's backing store.
type AttrDicter interface {
	AttrDict() map[string]any
}

type getKind uint8

const (
	getNone getKind = iota
	getAccessor
	getIsAccessor
	getMethod
	getBuiltinMethod
	getField
)

type getStrategy struct {
	kind   getKind
	method string
	field  []int
}

type setStrategy struct {
	setter string
	field  []int
}

type attrKey struct {
	t    reflect.Type
	name string
}

var (
	getCache sync.Map // attrKey -> getStrategy
	setCache sync.Map // attrKey -> setStrategy
)

func capitalize(name string) string {
	r, n := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[n:]
}

func exported(name string) string {
	if r, _ := utf8.DecodeRuneInString(name); unicode.IsUpper(r) {
		return name
	}
	return capitalize(name)
}

func zeroArgMethod(t reflect.Type, name string) bool {
	m, ok := t.MethodByName(name)
	if !ok || m.Type.NumIn() != 1 {
		return false
	}
	out := m.Type.NumOut()
	return out == 1 || (out == 2 && m.Type.Out(1) == errorType)
}

func structType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

func lookupField(t reflect.Type, name string) []int {
	st := structType(t)
	if st == nil {
		return nil
	}
	f, ok := st.FieldByName(exported(name))
	if !ok || !f.IsExported() {
		return nil
	}
	return f.Index
}

func resolveGet(t reflect.Type, name string) getStrategy {
	key := attrKey{t, name}
	if s, ok := getCache.Load(key); ok {
		return s.(getStrategy)
	}

	var s getStrategy
	upper := capitalize(name)
	switch {
	case zeroArgMethod(t, "Get"+upper):
		s = getStrategy{kind: getAccessor, method: "Get" + upper}
	case zeroArgMethod(t, "Is"+upper):
		s = getStrategy{kind: getIsAccessor, method: "Is" + upper}
	case hasBuiltinMethod(t, name):
		s = getStrategy{kind: getBuiltinMethod, method: name}
	default:
		if m, ok := t.MethodByName(exported(name)); ok && m.Type.NumIn() == 1 && !isProtocolMethod(exported(name)) {
			s = getStrategy{kind: getMethod, method: exported(name)}
		} else if idx := lookupField(t, name); idx != nil {
			s = getStrategy{kind: getField, field: idx}
		}
	}

	getCache.Store(key, s)
	return s
}

// isProtocolMethod keeps the protocol hooks themselves from being found as
// attributes.
func isProtocolMethod(name string) bool {
	switch name {
	case "GetAttr", "SetAttr", "DelAttr", "AttrDict":
		return true
	}
	return false
}

// GetAttr reads attribute name of obj. The lookup order is: a zero-argument
// Get<Name> accessor, a zero-argument Is<Name> accessor, a zero-argument
// method called name (returned bound, not invoked), an exported field, the AttrGetter
// catch-all and finally the AttrDict backing store.
func GetAttr(obj any, name string) (any, error) {
	if obj == nil {
		return nil, &AttributeError{Name: name, Object: "NoneType"}
	}

	v := reflect.ValueOf(obj)
	s := resolveGet(v.Type(), name)
	switch s.kind {
	case getAccessor, getIsAccessor:
		return callReflect(v.MethodByName(s.method), nil, s.method)
	case getBuiltinMethod:
		return builtinMethod(obj, name), nil
	case getMethod:
		return &HostFunc{Name: name, Fn: v.MethodByName(s.method)}, nil
	case getField:
		target := v
		if target.Kind() == reflect.Pointer {
			if target.IsNil() {
				break
			}
			target = target.Elem()
		}
		if f, err := target.FieldByIndexErr(s.field); err == nil {
			return fromHost(f), nil
		}
	}

	if g, ok := obj.(AttrGetter); ok {
		val, err := g.GetAttr(name)
		if err == nil {
			return val, nil
		}
		if !errors.Is(err, ErrNoAttribute) {
			return nil, err
		}
	}

	if d, ok := obj.(AttrDicter); ok {
		if val, ok := d.AttrDict()[name]; ok {
			return val, nil
		}
	}

	return nil, &AttributeError{Name: name, Object: TypeName(obj)}
}

// HasAttr reports whether GetAttr succeeds. Errors other than
// AttributeError are returned.
func HasAttr(obj any, name string) (bool, error) {
	_, err := GetAttr(obj, name)
	if err == nil {
		return true, nil
	}
	var attrErr *AttributeError
	if errors.As(err, &attrErr) {
		return false, nil
	}
	return false, err
}

func resolveSet(t reflect.Type, name string) setStrategy {
	key := attrKey{t, name}
	if s, ok := setCache.Load(key); ok {
		return s.(setStrategy)
	}

	var s setStrategy
	setter := "Set" + capitalize(name)
	if m, ok := t.MethodByName(setter); ok && m.Type.NumIn() == 2 && !isProtocolMethod(setter) {
		s.setter = setter
	}
	if t.Kind() == reflect.Pointer {
		s.field = lookupField(t, name)
	}

	setCache.Store(key, s)
	return s
}

// SetAttr assigns attribute name of obj. The order is: a Set<Name> method
// accepting the value's type, an exported field, the AttrSetter catch-all
// and insertion into the AttrDict backing store. A catch-all failing with
// ErrNoAttribute falls through to the store.
func SetAttr(obj any, name string, value any) error {
	if obj == nil {
		return &AttributeError{Name: name, Object: "NoneType"}
	}

	v := reflect.ValueOf(obj)
	s := resolveSet(v.Type(), name)

	if s.setter != "" {
		m := v.MethodByName(s.setter)
		if arg, err := toHost(value, m.Type().In(0)); err == nil {
			_, err := callReflectValues(m, []reflect.Value{arg})
			return err
		}
	}

	if s.field != nil && !v.IsNil() {
		if f, err := v.Elem().FieldByIndexErr(s.field); err == nil && f.CanSet() {
			if arg, err := toHost(value, f.Type()); err == nil {
				f.Set(arg)
				return nil
			}
		}
	}

	if st, ok := obj.(AttrSetter); ok {
		err := st.SetAttr(name, value)
		if err == nil || !errors.Is(err, ErrNoAttribute) {
			return err
		}
	}

	if d, ok := obj.(AttrDicter); ok {
		if m := d.AttrDict(); m != nil {
			m[name] = value
			return nil
		}
	}

	return &AttributeError{Name: name, Object: TypeName(obj)}
}

// DelAttr removes attribute name of obj through the AttrDeleter catch-all or
// the AttrDict backing store. A catch-all failing with ErrNoAttribute falls
// through to the store.
func DelAttr(obj any, name string) error {
	if obj == nil {
		return &AttributeError{Name: name, Object: "NoneType"}
	}
	if d, ok := obj.(AttrDeleter); ok {
		err := d.DelAttr(name)
		if err == nil || !errors.Is(err, ErrNoAttribute) {
			return err
		}
	}
	if d, ok := obj.(AttrDicter); ok {
		m := d.AttrDict()
		if _, ok := m[name]; ok {
			delete(m, name)
			return nil
		}
	}
	return &AttributeError{Name: name, Object: TypeName(obj)}
}
