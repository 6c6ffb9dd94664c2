package runtime

import (
	"reflect"
	"strings"
)

// Equal implements ==.
func Equal(a, b any) bool {
	if an, ok := toFloat(a); ok {
		if bn, ok := toFloat(b); ok {
			if isFloat(a) || isFloat(b) {
				return an == bn
			}
			ai, _ := toInt(a)
			bi, _ := toInt(b)
			return ai == bi
		}
		return false
	}

	if as, ok := stringValue(a); ok {
		bs, ok := stringValue(b)
		return ok && as == bs
	}

	switch x := a.(type) {
	case nil:
		return b == nil
	case *List:
		y, ok := b.(*List)
		return ok && equalItems(x.Items, y.Items)
	case Tuple:
		y, ok := b.(Tuple)
		return ok && equalItems(x, y)
	case *Dict:
		y, ok := b.(*Dict)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for i, k := range x.keys {
			v, found, err := y.Get(k)
			if err != nil || !found || !Equal(x.vals[i], v) {
				return false
			}
		}
		return true
	case *Range:
		y, ok := b.(*Range)
		return ok && *x == *y
	}

	return Is(a, b)
}

func equalItems(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func stringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case Char:
		return string(rune(s)), true
	}
	return "", false
}

// Is implements identity: the same reference for reference values, equal
// values of the same type otherwise.
func Is(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	switch ta.Kind() {
	case reflect.Slice:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		return va.Len() == vb.Len() && (va.Len() == 0 || va.Pointer() == vb.Pointer())
	case reflect.Map, reflect.Func:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	if !ta.Comparable() {
		return false
	}
	return a == b
}

// Compare returns -1, 0 or 1 for orderable values, or a TypeError.
func Compare(a, b any, op string) (int, error) {
	if an, ok := toFloat(a); ok {
		if bn, ok := toFloat(b); ok {
			if !isFloat(a) && !isFloat(b) {
				ai, _ := toInt(a)
				bi, _ := toInt(b)
				return cmpOrdered(ai, bi), nil
			}
			return cmpOrdered(an, bn), nil
		}
	}
	if as, ok := stringValue(a); ok {
		if bs, ok := stringValue(b); ok {
			return strings.Compare(as, bs), nil
		}
	}

	switch x := a.(type) {
	case *List:
		if y, ok := b.(*List); ok {
			return compareItems(x.Items, y.Items, op)
		}
	case Tuple:
		if y, ok := b.(Tuple); ok {
			return compareItems(x, y, op)
		}
	}

	return 0, Raise(TypeError, "'%s' not supported between instances of '%s' and '%s'", op, TypeName(a), TypeName(b))
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareItems(a, b []any, op string) (int, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		if Equal(a[i], b[i]) {
			continue
		}
		return Compare(a[i], b[i], op)
	}
	return cmpOrdered(int64(len(a)), int64(len(b))), nil
}

// Less implements <.
func Less(a, b any) (bool, error) {
	c, err := Compare(a, b, "<")
	return c < 0, err
}

// Contains implements the in operator.
func Contains(container, item any) (bool, error) {
	switch c := container.(type) {
	case string:
		sub, ok := stringValue(item)
		if !ok {
			return false, Raise(TypeError, "'in <string>' requires string as left operand, not %s", TypeName(item))
		}
		return strings.Contains(c, sub), nil
	case *Dict:
		_, ok, err := c.Get(item)
		return ok, err
	case *Range:
		i, ok := toInt(item)
		if !ok || isFloat(item) {
			return false, nil
		}
		if c.Step > 0 {
			return i >= c.Start && i < c.Stop && (i-c.Start)%c.Step == 0, nil
		}
		return i <= c.Start && i > c.Stop && (c.Start-i)%(-c.Step) == 0, nil
	}

	items, err := Collect(container)
	if err != nil {
		return false, Raise(TypeError, "argument of type '%s' is not iterable", TypeName(container))
	}
	for _, e := range items {
		if Equal(e, item) {
			return true, nil
		}
	}
	return false, nil
}

// Lener is implemented by host values with a length.
type Lener interface {
	Len() int
}

// Truth implements truth testing.
func Truth(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case Char:
		return true
	case *List:
		return len(x.Items) > 0
	case Tuple:
		return len(x) > 0
	case *Dict:
		return x.Len() > 0
	case *Range:
		return x.Len() > 0
	case Lener:
		return x.Len() > 0
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return true
}

// Len implements len().
func Len(v any) (int64, error) {
	switch x := v.(type) {
	case string:
		return int64(len([]rune(x))), nil
	case *List:
		return int64(len(x.Items)), nil
	case Tuple:
		return int64(len(x)), nil
	case *Dict:
		return int64(x.Len()), nil
	case *Range:
		return x.Len(), nil
	case Lener:
		return int64(x.Len()), nil
	}
	return 0, Raise(TypeError, "object of type '%s' has no len()", TypeName(v))
}
