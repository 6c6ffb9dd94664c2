package runtime

import (
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

type builtinFn func(env *Env, args []any, kwargs map[string]any) (any, error)

var builtinTable map[string]builtinFn

func init() {
	builtinTable = map[string]builtinFn{
		"print":      builtinPrint,
		"chr":        builtinChr,
		"ord":        builtinOrd,
		"len":        unary("len", func(v any) (any, error) { return Len(v) }),
		"str":        optionalUnary("str", "", func(v any) (any, error) { return Str(v), nil }),
		"repr":       unary("repr", func(v any) (any, error) { return Repr(v), nil }),
		"int":        builtinInt,
		"float":      optionalUnary("float", float64(0), toFloatValue),
		"bool":       optionalUnary("bool", false, func(v any) (any, error) { return Truth(v), nil }),
		"abs":        unary("abs", abs),
		"min":        extreme("min", 1),
		"max":        extreme("max", -1),
		"sum":        builtinSum,
		"range":      builtinRange,
		"list":       optionalUnary("list", nil, toList),
		"tuple":      optionalUnary("tuple", nil, toTuple),
		"dict":       builtinDict,
		"isinstance": builtinIsinstance,
		"hasattr":    builtinHasattr,
		"getattr":    builtinGetattr,
		"setattr":    builtinSetattr,
		"delattr":    builtinDelattr,
		"iter":       unary("iter", func(v any) (any, error) { return Iterate(v) }),
		"next":       builtinNext,
		"type":       builtinType,
		"sorted":     builtinSorted,
		"hex":        radix("hex", "0x", 16),
		"oct":        radix("oct", "0o", 8),
		"bin":        radix("bin", "0b", 2),
	}
}

// IsBuiltin reports whether name is a builtin function.
func IsBuiltin(name string) bool {
	_, ok := builtinTable[name]
	return ok
}

// BuiltinNames returns the builtin function names in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinTable))
	for name := range builtinTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newBuiltins(env *Env) map[string]*Builtin {
	out := make(map[string]*Builtin, len(builtinTable))
	for name, fn := range builtinTable {
		out[name] = &Builtin{Name: name, Fn: func(args []any, kwargs map[string]any) (any, error) {
			return fn(env, args, kwargs)
		}}
	}
	return out
}

func noKwargs(name string, kwargs map[string]any) error {
	for k := range kwargs {
		return Raise(TypeError, "%s() got an unexpected keyword argument '%s'", name, k)
	}
	return nil
}

func unary(name string, fn func(v any) (any, error)) builtinFn {
	return func(_ *Env, args []any, kwargs map[string]any) (any, error) {
		if err := noKwargs(name, kwargs); err != nil {
			return nil, err
		}
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		return fn(args[0])
	}
}

func optionalUnary(name string, zero any, fn func(v any) (any, error)) builtinFn {
	return func(env *Env, args []any, kwargs map[string]any) (any, error) {
		if len(args) == 0 && len(kwargs) == 0 {
			return fn(zero)
		}
		return unary(name, fn)(env, args, kwargs)
	}
}

func builtinPrint(env *Env, args []any, kwargs map[string]any) (any, error) {
	sep, end := " ", "\n"
	for k, v := range kwargs {
		s, err := strArg("print", v)
		switch {
		case v == nil:
			continue
		case err != nil:
			return nil, Raise(TypeError, "%s must be None or a string, not %s", k, TypeName(v))
		case k == "sep":
			sep = s
		case k == "end":
			end = s
		default:
			return nil, Raise(TypeError, "print() got an unexpected keyword argument '%s'", k)
		}
	}

	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = Str(a)
	}
	_, err := env.Stdout.Write([]byte(strings.Join(parts, sep) + end))
	return nil, err
}

func builtinChr(_ *Env, args []any, kwargs map[string]any) (any, error) {
	if err := arity("chr", args, 1, 1); err != nil {
		return nil, err
	}
	i, err := intArg("chr", args[0])
	if err != nil {
		return nil, err
	}
	if i < 0 || i > 0x10FFFF {
		return nil, Raise(ValueError, "chr() arg not in range(0x110000)")
	}
	return string(rune(i)), noKwargs("chr", kwargs)
}

func builtinOrd(_ *Env, args []any, kwargs map[string]any) (any, error) {
	if err := arity("ord", args, 1, 1); err != nil {
		return nil, err
	}
	s, err := strArg("ord", args[0])
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return nil, Raise(TypeError, "ord() expected a character, but string of length %d found", len(runes))
	}
	return int64(runes[0]), noKwargs("ord", kwargs)
}

func builtinInt(_ *Env, args []any, kwargs map[string]any) (any, error) {
	if err := arity("int", args, 0, 2); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return int64(0), nil
	}

	base := int64(10)
	explicitBase := false
	if b, ok := kwargs["base"]; ok {
		args = append(args, b)
	}
	if len(args) == 2 {
		var err error
		if base, err = intArg("int", args[1]); err != nil {
			return nil, err
		}
		explicitBase = true
	}

	switch v := args[0].(type) {
	case string:
		text := strings.ReplaceAll(strings.TrimSpace(v), "_", "")
		i, err := strconv.ParseInt(text, int(base), 64)
		if err != nil {
			return nil, Raise(ValueError, "invalid literal for int() with base %d: %s", base, Repr(v))
		}
		return i, nil
	case float64, float32:
		if explicitBase {
			return nil, Raise(TypeError, "int() can't convert non-string with explicit base")
		}
		f, _ := toFloat(v)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, Raise(ValueError, "cannot convert float %s to integer", formatFloat(f))
		}
		return int64(f), nil
	}
	if i, ok := toInt(args[0]); ok && !explicitBase {
		return i, nil
	}
	return nil, Raise(TypeError, "int() argument must be a string or a number, not '%s'", TypeName(args[0]))
}

func toFloatValue(v any) (any, error) {
	if s, ok := v.(string); ok {
		text := strings.ToLower(strings.TrimSpace(s))
		switch text {
		case "inf", "+inf", "infinity":
			return math.Inf(1), nil
		case "-inf", "-infinity":
			return math.Inf(-1), nil
		case "nan":
			return math.NaN(), nil
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
		if err != nil {
			return nil, Raise(ValueError, "could not convert string to float: %s", Repr(s))
		}
		return f, nil
	}
	if f, ok := toFloat(v); ok {
		return f, nil
	}
	return nil, Raise(TypeError, "float() argument must be a string or a number, not '%s'", TypeName(v))
}

func abs(v any) (any, error) {
	if i, ok := toInt(v); ok && !isFloat(v) {
		if i < 0 {
			return -i, nil
		}
		return i, nil
	}
	if f, ok := toFloat(v); ok {
		return math.Abs(f), nil
	}
	return nil, Raise(TypeError, "bad operand type for abs(): '%s'", TypeName(v))
}

// extreme builds min (want 1: keep the smaller) and max (want -1).
func extreme(name string, want int) builtinFn {
	return func(_ *Env, args []any, kwargs map[string]any) (any, error) {
		if err := arity(name, args, 1, -1); err != nil {
			return nil, err
		}
		items := args
		if len(args) == 1 {
			var err error
			if items, err = Collect(args[0]); err != nil {
				return nil, err
			}
		}
		if len(items) == 0 {
			if def, ok := kwargs["default"]; ok {
				return def, nil
			}
			return nil, Raise(ValueError, "%s() arg is an empty sequence", name)
		}

		best := items[0]
		for _, item := range items[1:] {
			c, err := Compare(best, item, "<")
			if err != nil {
				return nil, err
			}
			if c == want {
				best = item
			}
		}
		return best, nil
	}
}

func builtinSum(_ *Env, args []any, kwargs map[string]any) (any, error) {
	if err := arity("sum", args, 1, 2); err != nil {
		return nil, err
	}
	var total any = int64(0)
	if len(args) == 2 {
		total = args[1]
	} else if start, ok := kwargs["start"]; ok {
		total = start
	}

	items, err := Collect(args[0])
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if total, err = Add(total, item); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func builtinRange(_ *Env, args []any, kwargs map[string]any) (any, error) {
	if err := noKwargs("range", kwargs); err != nil {
		return nil, err
	}
	if err := arity("range", args, 1, 3); err != nil {
		return nil, err
	}

	bounds := make([]int64, len(args))
	for i, a := range args {
		v, err := intArg("range", a)
		if err != nil {
			return nil, err
		}
		bounds[i] = v
	}

	r := &Range{Step: 1}
	switch len(bounds) {
	case 1:
		r.Stop = bounds[0]
	case 2:
		r.Start, r.Stop = bounds[0], bounds[1]
	case 3:
		r.Start, r.Stop, r.Step = bounds[0], bounds[1], bounds[2]
	}
	if r.Step == 0 {
		return nil, Raise(ValueError, "range() arg 3 must not be zero")
	}
	return r, nil
}

func toList(v any) (any, error) {
	if v == nil {
		return NewList(), nil
	}
	items, err := Collect(v)
	if err != nil {
		return nil, err
	}
	return NewList(append([]any(nil), items...)...), nil
}

func toTuple(v any) (any, error) {
	if v == nil {
		return Tuple{}, nil
	}
	if t, ok := v.(Tuple); ok {
		return t, nil
	}
	items, err := Collect(v)
	if err != nil {
		return nil, err
	}
	return Tuple(append([]any(nil), items...)), nil
}

func builtinDict(_ *Env, args []any, kwargs map[string]any) (any, error) {
	if err := arity("dict", args, 0, 1); err != nil {
		return nil, err
	}
	d := NewDict()
	if len(args) == 1 {
		if src, ok := args[0].(*Dict); ok {
			for i := range src.keys {
				_ = d.Set(src.keys[i], src.vals[i])
			}
		} else {
			pairs, err := Collect(args[0])
			if err != nil {
				return nil, err
			}
			for _, p := range pairs {
				kv, err := Collect(p)
				if err != nil || len(kv) != 2 {
					return nil, Raise(TypeError, "cannot convert dictionary update sequence element to a sequence of length 2")
				}
				if err := d.Set(kv[0], kv[1]); err != nil {
					return nil, err
				}
			}
		}
	}
	for _, k := range sortedKeys(kwargs) {
		_ = d.Set(k, kwargs[k])
	}
	return d, nil
}

func isInstance(obj, cls any) (bool, error) {
	switch c := cls.(type) {
	case Tuple:
		for _, each := range c {
			ok, err := isInstance(obj, each)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case *Builtin:
		name := TypeName(obj)
		return name == c.Name || (c.Name == "int" && name == "bool"), nil
	case InstanceChecker:
		return c.IsInstance(obj), nil
	}
	return false, Raise(TypeError, "isinstance() arg 2 must be a type or tuple of types")
}

func builtinIsinstance(_ *Env, args []any, kwargs map[string]any) (any, error) {
	if err := arity("isinstance", args, 2, 2); err != nil {
		return nil, err
	}
	return isInstance(args[0], args[1])
}

func nameArg(fn string, args []any, min, max int) (string, error) {
	if err := arity(fn, args, min, max); err != nil {
		return "", err
	}
	name, ok := args[1].(string)
	if !ok {
		return "", Raise(TypeError, "attribute name must be string, not '%s'", TypeName(args[1]))
	}
	return name, nil
}

func builtinHasattr(_ *Env, args []any, _ map[string]any) (any, error) {
	name, err := nameArg("hasattr", args, 2, 2)
	if err != nil {
		return nil, err
	}
	return HasAttr(args[0], name)
}

func builtinGetattr(_ *Env, args []any, _ map[string]any) (any, error) {
	name, err := nameArg("getattr", args, 2, 3)
	if err != nil {
		return nil, err
	}
	v, err := GetAttr(args[0], name)
	if _, missing := err.(*AttributeError); missing && len(args) == 3 {
		return args[2], nil
	}
	return v, err
}

func builtinSetattr(_ *Env, args []any, _ map[string]any) (any, error) {
	name, err := nameArg("setattr", args, 3, 3)
	if err != nil {
		return nil, err
	}
	return nil, SetAttr(args[0], name, args[2])
}

func builtinDelattr(_ *Env, args []any, _ map[string]any) (any, error) {
	name, err := nameArg("delattr", args, 2, 2)
	if err != nil {
		return nil, err
	}
	return nil, DelAttr(args[0], name)
}

func builtinNext(_ *Env, args []any, _ map[string]any) (any, error) {
	if err := arity("next", args, 1, 2); err != nil {
		return nil, err
	}
	it, ok := args[0].(Iterator)
	if !ok {
		return nil, Raise(TypeError, "'%s' object is not an iterator", TypeName(args[0]))
	}
	if !it.HasNext() && len(args) == 2 {
		return args[1], nil
	}
	return it.Next()
}

func builtinType(env *Env, args []any, _ map[string]any) (any, error) {
	if err := arity("type", args, 1, 1); err != nil {
		return nil, err
	}
	obj := args[0]
	if inst, ok := obj.(Instance); ok {
		return inst.ClassValue(), nil
	}
	if b, ok := env.builtins[TypeName(obj)]; ok {
		return b, nil
	}
	t := reflect.TypeOf(obj)
	if t == nil {
		return &HostType{Name: "NoneType", T: reflect.TypeOf((*any)(nil)).Elem()}, nil
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return &HostType{Name: t.String(), T: t}, nil
}

func builtinSorted(_ *Env, args []any, kwargs map[string]any) (any, error) {
	if err := arity("sorted", args, 1, 1); err != nil {
		return nil, err
	}
	items, err := Collect(args[0])
	if err != nil {
		return nil, err
	}
	out := append([]any(nil), items...)
	if err := sortItems(out, Truth(kwargs["reverse"])); err != nil {
		return nil, err
	}
	return NewList(out...), nil
}

func radix(name, prefix string, base int) builtinFn {
	return unary(name, func(v any) (any, error) {
		i, err := intArg(name, v)
		if err != nil {
			return nil, err
		}
		if i < 0 {
			return "-" + prefix + strconv.FormatInt(-i, base), nil
		}
		return prefix + strconv.FormatInt(i, base), nil
	})
}
