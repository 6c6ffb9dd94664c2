package runtime

import (
	"reflect"
	"sort"
	"strings"
	"unicode"
)

type methodFn func(self any, args []any, kwargs map[string]any) (any, error)

var methodTables map[reflect.Type]map[string]methodFn

func init() {
	methodTables = map[reflect.Type]map[string]methodFn{
		reflect.TypeOf(""):         strMethods(),
		reflect.TypeOf(Char(0)):    strMethods(),
		reflect.TypeOf(&List{}):    listMethods(),
		reflect.TypeOf(&Dict{}):    dictMethods(),
		reflect.TypeOf(Tuple(nil)): tupleMethods(),
		reflect.TypeOf(&Range{}):   tupleMethods(),
	}
}

func hasBuiltinMethod(t reflect.Type, name string) bool {
	_, ok := methodTables[t][name]
	return ok
}

func builtinMethod(self any, name string) *BoundMethod {
	fn := methodTables[reflect.TypeOf(self)][name]
	return &BoundMethod{
		Self: self,
		Name: TypeName(self) + "." + name,
		Fn: &Builtin{Name: name, Fn: func(args []any, kwargs map[string]any) (any, error) {
			return fn(args[0], args[1:], kwargs)
		}},
	}
}

func arity(name string, args []any, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		switch {
		case min == max:
			return Raise(TypeError, "%s() takes exactly %d arguments (%d given)", name, min, len(args))
		case max < 0:
			return Raise(TypeError, "%s() takes at least %d arguments (%d given)", name, min, len(args))
		}
		return Raise(TypeError, "%s() takes from %d to %d arguments (%d given)", name, min, max, len(args))
	}
	return nil
}

func strArg(name string, v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case Char:
		return string(rune(s)), nil
	}
	return "", Raise(TypeError, "%s() argument must be str, not %s", name, TypeName(v))
}

func intArg(name string, v any) (int64, error) {
	if i, ok := toInt(v); ok {
		return i, nil
	}
	return 0, Raise(TypeError, "'%s' object cannot be interpreted as an integer in %s()", TypeName(v), name)
}

func strFunc(name string, fn func(s string) any) methodFn {
	return func(self any, args []any, _ map[string]any) (any, error) {
		if err := arity(name, args, 0, 0); err != nil {
			return nil, err
		}
		s, _ := strArg(name, self)
		return fn(s), nil
	}
}

func strMethods() map[string]methodFn {
	trim := func(name string, fn func(string, string) string, def func(string) string) methodFn {
		return func(self any, args []any, _ map[string]any) (any, error) {
			if err := arity(name, args, 0, 1); err != nil {
				return nil, err
			}
			s, _ := strArg(name, self)
			if len(args) == 0 || args[0] == nil {
				return def(s), nil
			}
			cut, err := strArg(name, args[0])
			if err != nil {
				return nil, err
			}
			return fn(s, cut), nil
		}
	}

	return map[string]methodFn{
		"upper": strFunc("upper", func(s string) any { return strings.ToUpper(s) }),
		"lower": strFunc("lower", func(s string) any { return strings.ToLower(s) }),
		"isdigit": strFunc("isdigit", func(s string) any {
			return s != "" && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
		}),
		"isalpha": strFunc("isalpha", func(s string) any {
			return s != "" && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) < 0
		}),
		"strip":  trim("strip", strings.Trim, strings.TrimSpace),
		"lstrip": trim("lstrip", strings.TrimLeft, func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) }),
		"rstrip": trim("rstrip", strings.TrimRight, func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) }),
		"split": func(self any, args []any, _ map[string]any) (any, error) {
			if err := arity("split", args, 0, 1); err != nil {
				return nil, err
			}
			s, _ := strArg("split", self)
			var parts []string
			if len(args) == 0 || args[0] == nil {
				parts = strings.Fields(s)
			} else {
				sep, err := strArg("split", args[0])
				if err != nil {
					return nil, err
				}
				if sep == "" {
					return nil, Raise(ValueError, "empty separator")
				}
				parts = strings.Split(s, sep)
			}
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return NewList(out...), nil
		},
		"join": func(self any, args []any, _ map[string]any) (any, error) {
			if err := arity("join", args, 1, 1); err != nil {
				return nil, err
			}
			sep, _ := strArg("join", self)
			items, err := Collect(args[0])
			if err != nil {
				return nil, err
			}
			parts := make([]string, len(items))
			for i, item := range items {
				if parts[i], err = strArg("join", item); err != nil {
					return nil, err
				}
			}
			return strings.Join(parts, sep), nil
		},
		"replace": func(self any, args []any, _ map[string]any) (any, error) {
			if err := arity("replace", args, 2, 2); err != nil {
				return nil, err
			}
			s, _ := strArg("replace", self)
			old, err := strArg("replace", args[0])
			if err != nil {
				return nil, err
			}
			repl, err := strArg("replace", args[1])
			if err != nil {
				return nil, err
			}
			return strings.ReplaceAll(s, old, repl), nil
		},
		"startswith": strPredicate("startswith", strings.HasPrefix),
		"endswith":   strPredicate("endswith", strings.HasSuffix),
		"find": func(self any, args []any, _ map[string]any) (any, error) {
			if err := arity("find", args, 1, 1); err != nil {
				return nil, err
			}
			s, _ := strArg("find", self)
			sub, err := strArg("find", args[0])
			if err != nil {
				return nil, err
			}
			i := strings.Index(s, sub)
			if i < 0 {
				return int64(-1), nil
			}
			return int64(len([]rune(s[:i]))), nil
		},
		"count": func(self any, args []any, _ map[string]any) (any, error) {
			if err := arity("count", args, 1, 1); err != nil {
				return nil, err
			}
			s, _ := strArg("count", self)
			sub, err := strArg("count", args[0])
			if err != nil {
				return nil, err
			}
			return int64(strings.Count(s, sub)), nil
		},
	}
}

func strPredicate(name string, fn func(s, arg string) bool) methodFn {
	return func(self any, args []any, _ map[string]any) (any, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		s, _ := strArg(name, self)
		arg, err := strArg(name, args[0])
		if err != nil {
			return nil, err
		}
		return fn(s, arg), nil
	}
}

func seqIndex(self any, args []any, _ map[string]any) (any, error) {
	if err := arity("index", args, 1, 1); err != nil {
		return nil, err
	}
	items, err := Collect(self)
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		if Equal(item, args[0]) {
			return int64(i), nil
		}
	}
	return nil, Raise(ValueError, "%s is not in %s", Repr(args[0]), TypeName(self))
}

func seqCount(self any, args []any, _ map[string]any) (any, error) {
	if err := arity("count", args, 1, 1); err != nil {
		return nil, err
	}
	items, err := Collect(self)
	if err != nil {
		return nil, err
	}
	n := int64(0)
	for _, item := range items {
		if Equal(item, args[0]) {
			n++
		}
	}
	return n, nil
}

func tupleMethods() map[string]methodFn {
	return map[string]methodFn{"index": seqIndex, "count": seqCount}
}

func listMethods() map[string]methodFn {
	return map[string]methodFn{
		"index": seqIndex,
		"count": seqCount,
		"append": func(self any, args []any, _ map[string]any) (any, error) {
			if err := arity("append", args, 1, 1); err != nil {
				return nil, err
			}
			l := self.(*List)
			l.Items = append(l.Items, args[0])
			return nil, nil
		},
		"extend": func(self any, args []any, _ map[string]any) (any, error) {
			if err := arity("extend", args, 1, 1); err != nil {
				return nil, err
			}
			items, err := Collect(args[0])
			if err != nil {
				return nil, err
			}
			l := self.(*List)
			l.Items = append(l.Items, items...)
			return nil, nil
		},
		"insert": func(self any, args []any, _ map[string]any) (any, error) {
			if err := arity("insert", args, 2, 2); err != nil {
				return nil, err
			}
			i, err := intArg("insert", args[0])
			if err != nil {
				return nil, err
			}
			l := self.(*List)
			n := int64(len(l.Items))
			if i < 0 {
				i = max(i+n, 0)
			}
			i = min(i, n)
			l.Items = append(l.Items, nil)
			copy(l.Items[i+1:], l.Items[i:])
			l.Items[i] = args[1]
			return nil, nil
		},
		"pop": func(self any, args []any, _ map[string]any) (any, error) {
			if err := arity("pop", args, 0, 1); err != nil {
				return nil, err
			}
			l := self.(*List)
			if len(l.Items) == 0 {
				return nil, Raise(IndexError, "pop from empty list")
			}
			i := int64(len(l.Items) - 1)
			if len(args) == 1 {
				var err error
				if i, err = normalizeIndex("pop", args[0], len(l.Items)); err != nil {
					return nil, err
				}
			}
			v := l.Items[i]
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			return v, nil
		},
		"remove": func(self any, args []any, _ map[string]any) (any, error) {
			if err := arity("remove", args, 1, 1); err != nil {
				return nil, err
			}
			l := self.(*List)
			for i, item := range l.Items {
				if Equal(item, args[0]) {
					l.Items = append(l.Items[:i], l.Items[i+1:]...)
					return nil, nil
				}
			}
			return nil, Raise(ValueError, "list.remove(x): x not in list")
		},
		"reverse": func(self any, args []any, _ map[string]any) (any, error) {
			if err := arity("reverse", args, 0, 0); err != nil {
				return nil, err
			}
			items := self.(*List).Items
			for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
				items[i], items[j] = items[j], items[i]
			}
			return nil, nil
		},
		"clear": func(self any, args []any, _ map[string]any) (any, error) {
			self.(*List).Items = nil
			return nil, arity("clear", args, 0, 0)
		},
		"copy": func(self any, args []any, _ map[string]any) (any, error) {
			return NewList(append([]any(nil), self.(*List).Items...)...), arity("copy", args, 0, 0)
		},
		"sort": func(self any, args []any, kwargs map[string]any) (any, error) {
			if err := arity("sort", args, 0, 0); err != nil {
				return nil, err
			}
			l := self.(*List)
			return nil, sortItems(l.Items, Truth(kwargs["reverse"]))
		},
	}
}

func sortItems(items []any, reverse bool) error {
	var sortErr error
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if reverse {
			a, b = b, a
		}
		less, err := Less(a, b)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return less
	})
	return sortErr
}

func dictMethods() map[string]methodFn {
	return map[string]methodFn{
		"get": func(self any, args []any, _ map[string]any) (any, error) {
			if err := arity("get", args, 1, 2); err != nil {
				return nil, err
			}
			v, ok, err := self.(*Dict).Get(args[0])
			if err != nil || ok {
				return v, err
			}
			if len(args) == 2 {
				return args[1], nil
			}
			return nil, nil
		},
		"keys": func(self any, args []any, _ map[string]any) (any, error) {
			return NewList(self.(*Dict).Keys()...), arity("keys", args, 0, 0)
		},
		"values": func(self any, args []any, _ map[string]any) (any, error) {
			return NewList(self.(*Dict).Values()...), arity("values", args, 0, 0)
		},
		"items": func(self any, args []any, _ map[string]any) (any, error) {
			d := self.(*Dict)
			out := make([]any, d.Len())
			for i := range d.keys {
				out[i] = Tuple{d.keys[i], d.vals[i]}
			}
			return NewList(out...), arity("items", args, 0, 0)
		},
		"pop": func(self any, args []any, _ map[string]any) (any, error) {
			if err := arity("pop", args, 1, 2); err != nil {
				return nil, err
			}
			d := self.(*Dict)
			v, ok, err := d.Get(args[0])
			if err != nil {
				return nil, err
			}
			if !ok {
				if len(args) == 2 {
					return args[1], nil
				}
				return nil, Raise(KeyError, "%s", Repr(args[0]))
			}
			return v, d.Delete(args[0])
		},
		"setdefault": func(self any, args []any, _ map[string]any) (any, error) {
			if err := arity("setdefault", args, 1, 2); err != nil {
				return nil, err
			}
			d := self.(*Dict)
			v, ok, err := d.Get(args[0])
			if err != nil || ok {
				return v, err
			}
			var def any
			if len(args) == 2 {
				def = args[1]
			}
			return def, d.Set(args[0], def)
		},
		"update": func(self any, args []any, kwargs map[string]any) (any, error) {
			if err := arity("update", args, 0, 1); err != nil {
				return nil, err
			}
			d := self.(*Dict)
			if len(args) == 1 {
				other, ok := args[0].(*Dict)
				if !ok {
					return nil, Raise(TypeError, "update() argument must be dict, not %s", TypeName(args[0]))
				}
				for i := range other.keys {
					if err := d.Set(other.keys[i], other.vals[i]); err != nil {
						return nil, err
					}
				}
			}
			for _, k := range sortedKeys(kwargs) {
				if err := d.Set(k, kwargs[k]); err != nil {
					return nil, err
				}
			}
			return nil, nil
		},
		"clear": func(self any, args []any, _ map[string]any) (any, error) {
			*self.(*Dict) = *NewDict()
			return nil, arity("clear", args, 0, 0)
		},
		"copy": func(self any, args []any, _ map[string]any) (any, error) {
			src := self.(*Dict)
			d := NewDict()
			for i := range src.keys {
				_ = d.Set(src.keys[i], src.vals[i])
			}
			return d, arity("copy", args, 0, 0)
		},
	}
}
